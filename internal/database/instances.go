package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UqActiveInstance is the partial unique index guarding the one active
// instance per (team, challenge) invariant. Inserts racing on it fail
// with a 23505 carrying this constraint name.
const UqActiveInstance = "uq_active_instance"

const createInstance = `
INSERT INTO challenge_instances (team_id, challenge_id, requested_by, status, end_at)
VALUES ($1, $2, $3, 'pending', $4)
RETURNING id, team_id, challenge_id, requested_by, status, endpoint, created_at, end_at, destroy_at
`

type CreateInstanceParams struct {
	TeamID      int32
	ChallengeID int32
	RequestedBy uuid.UUID
	EndAt       time.Time
}

func (q *Queries) CreateInstance(
	ctx context.Context,
	arg CreateInstanceParams,
) (ChallengeInstance, error) {
	row := q.db.QueryRow(
		ctx,
		createInstance,
		arg.TeamID,
		arg.ChallengeID,
		arg.RequestedBy,
		arg.EndAt,
	)
	var i ChallengeInstance
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.ChallengeID,
		&i.RequestedBy,
		&i.Status,
		&i.Endpoint,
		&i.CreatedAt,
		&i.EndAt,
		&i.DestroyAt,
	)
	return i, err
}

const markInstanceRunning = `
UPDATE challenge_instances
SET status = 'running', endpoint = $2
WHERE id = $1 AND status = 'pending'
`

type MarkInstanceRunningParams struct {
	ID       uuid.UUID
	Endpoint string
}

// MarkInstanceRunning applies the pending -> running transition. It
// returns the number of rows changed: zero means the instance left
// pending concurrently and the caller must treat the result as stale.
func (q *Queries) MarkInstanceRunning(
	ctx context.Context,
	arg MarkInstanceRunningParams,
) (int64, error) {
	tag, err := q.db.Exec(ctx, markInstanceRunning, arg.ID, arg.Endpoint)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const markInstanceError = `
UPDATE challenge_instances
SET status = 'error'
WHERE id = $1 AND status = 'pending'
`

func (q *Queries) MarkInstanceError(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markInstanceError, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const terminateInstance = `
UPDATE challenge_instances
SET status = 'stopped', destroy_at = now()
WHERE id = $1 AND status IN ('pending', 'running')
RETURNING id, team_id, challenge_id, requested_by, status, endpoint, created_at, end_at, destroy_at
`

// TerminateInstance applies the pending|running -> stopped transition.
// pgx.ErrNoRows means the instance was already terminal.
func (q *Queries) TerminateInstance(
	ctx context.Context,
	id uuid.UUID,
) (ChallengeInstance, error) {
	row := q.db.QueryRow(ctx, terminateInstance, id)
	var i ChallengeInstance
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.ChallengeID,
		&i.RequestedBy,
		&i.Status,
		&i.Endpoint,
		&i.CreatedAt,
		&i.EndAt,
		&i.DestroyAt,
	)
	return i, err
}

const expireInstances = `
UPDATE challenge_instances
SET status = 'stopped', destroy_at = now()
WHERE status = 'running' AND end_at <= now()
RETURNING id, team_id, challenge_id, requested_by, status, endpoint, created_at, end_at, destroy_at
`

// ExpireInstances claims every running instance past its end_at in a
// single conditional update, so a sweep racing a user destroy observes
// exactly one terminal transition per instance.
func (q *Queries) ExpireInstances(ctx context.Context) ([]ChallengeInstance, error) {
	rows, err := q.db.Query(ctx, expireInstances)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChallengeInstance
	for rows.Next() {
		var i ChallengeInstance
		if err := rows.Scan(
			&i.ID,
			&i.TeamID,
			&i.ChallengeID,
			&i.RequestedBy,
			&i.Status,
			&i.Endpoint,
			&i.CreatedAt,
			&i.EndAt,
			&i.DestroyAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getInstanceByID = `
SELECT id, team_id, challenge_id, requested_by, status, endpoint, created_at, end_at, destroy_at
FROM challenge_instances
WHERE id = $1
`

func (q *Queries) GetInstanceByID(
	ctx context.Context,
	id uuid.UUID,
) (ChallengeInstance, error) {
	row := q.db.QueryRow(ctx, getInstanceByID, id)
	var i ChallengeInstance
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.ChallengeID,
		&i.RequestedBy,
		&i.Status,
		&i.Endpoint,
		&i.CreatedAt,
		&i.EndAt,
		&i.DestroyAt,
	)
	return i, err
}

const getActiveInstance = `
SELECT id, team_id, challenge_id, requested_by, status, endpoint, created_at, end_at, destroy_at
FROM challenge_instances
WHERE team_id = $1 AND challenge_id = $2 AND status IN ('pending', 'running')
`

type GetActiveInstanceParams struct {
	TeamID      int32
	ChallengeID int32
}

func (q *Queries) GetActiveInstance(
	ctx context.Context,
	arg GetActiveInstanceParams,
) (ChallengeInstance, error) {
	row := q.db.QueryRow(ctx, getActiveInstance, arg.TeamID, arg.ChallengeID)
	var i ChallengeInstance
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.ChallengeID,
		&i.RequestedBy,
		&i.Status,
		&i.Endpoint,
		&i.CreatedAt,
		&i.EndAt,
		&i.DestroyAt,
	)
	return i, err
}

const getRunningInstance = `
SELECT id, team_id, challenge_id, requested_by, status, endpoint, created_at, end_at, destroy_at
FROM challenge_instances
WHERE team_id = $1 AND challenge_id = $2 AND status = 'running'
`

type GetRunningInstanceParams struct {
	TeamID      int32
	ChallengeID int32
}

func (q *Queries) GetRunningInstance(
	ctx context.Context,
	arg GetRunningInstanceParams,
) (ChallengeInstance, error) {
	row := q.db.QueryRow(ctx, getRunningInstance, arg.TeamID, arg.ChallengeID)
	var i ChallengeInstance
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.ChallengeID,
		&i.RequestedBy,
		&i.Status,
		&i.Endpoint,
		&i.CreatedAt,
		&i.EndAt,
		&i.DestroyAt,
	)
	return i, err
}
