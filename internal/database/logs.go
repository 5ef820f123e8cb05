package database

import (
	"context"

	"github.com/google/uuid"
)

const createLogEntry = `
INSERT INTO log_entries (action_type, user_id, team_id, challenge_id, instance_id, detail)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, action_type, user_id, team_id, challenge_id, instance_id, detail, created_at
`

type CreateLogEntryParams struct {
	ActionType  ActionType
	UserID      *uuid.UUID
	TeamID      *int32
	ChallengeID *int32
	InstanceID  *uuid.UUID
	Detail      string
}

func (q *Queries) CreateLogEntry(
	ctx context.Context,
	arg CreateLogEntryParams,
) (LogEntry, error) {
	row := q.db.QueryRow(
		ctx,
		createLogEntry,
		arg.ActionType,
		arg.UserID,
		arg.TeamID,
		arg.ChallengeID,
		arg.InstanceID,
		arg.Detail,
	)
	var e LogEntry
	err := row.Scan(
		&e.ID,
		&e.ActionType,
		&e.UserID,
		&e.TeamID,
		&e.ChallengeID,
		&e.InstanceID,
		&e.Detail,
		&e.CreatedAt,
	)
	return e, err
}

const getLogEntries = `
SELECT id, action_type, user_id, team_id, challenge_id, instance_id, detail, created_at
FROM log_entries
WHERE ($1::text IS NULL OR action_type = $1)
  AND ($2::uuid IS NULL OR user_id = $2)
  AND ($3::int IS NULL OR team_id = $3)
  AND ($4::int IS NULL OR challenge_id = $4)
ORDER BY created_at DESC
LIMIT $5
`

type GetLogEntriesParams struct {
	ActionType  *ActionType
	UserID      *uuid.UUID
	TeamID      *int32
	ChallengeID *int32
	Limit       int32
}

func (q *Queries) GetLogEntries(
	ctx context.Context,
	arg GetLogEntriesParams,
) ([]LogEntry, error) {
	rows, err := q.db.Query(
		ctx,
		getLogEntries,
		arg.ActionType,
		arg.UserID,
		arg.TeamID,
		arg.ChallengeID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(
			&e.ID,
			&e.ActionType,
			&e.UserID,
			&e.TeamID,
			&e.ChallengeID,
			&e.InstanceID,
			&e.Detail,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
