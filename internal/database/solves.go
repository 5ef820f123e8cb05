package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const createSolve = `
INSERT INTO solves (user_id, team_id, challenge_id, instance_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT uq_solve_user_challenge DO NOTHING
RETURNING id, user_id, team_id, challenge_id, instance_id, solved_at
`

const creditTeamScore = `
UPDATE teams
SET score = score + $2
WHERE id = $1
`

type CreateSolveAndCreditParams struct {
	UserID      uuid.UUID
	TeamID      int32
	ChallengeID int32
	InstanceID  *uuid.UUID
	Points      int32
}

// CreateSolveAndCredit inserts the solve and applies the team's score
// delta in one transaction. The insert is conditional on the
// (user, challenge) unique constraint, so of N concurrent correct
// submissions exactly one returns credited = true and increments the
// score; the rest see the conflict and leave the team untouched.
func (s *Store) CreateSolveAndCredit(
	ctx context.Context,
	arg CreateSolveAndCreditParams,
) (credited bool, err error) {
	err = s.execTx(ctx, func(q *Queries) error {
		row := q.db.QueryRow(
			ctx,
			createSolve,
			arg.UserID,
			arg.TeamID,
			arg.ChallengeID,
			arg.InstanceID,
		)
		var solve Solve
		scanErr := row.Scan(
			&solve.ID,
			&solve.UserID,
			&solve.TeamID,
			&solve.ChallengeID,
			&solve.InstanceID,
			&solve.SolvedAt,
		)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			// prior solve exists, nothing to credit
			return nil
		}
		if scanErr != nil {
			return scanErr
		}

		if _, execErr := q.db.Exec(ctx, creditTeamScore, arg.TeamID, arg.Points); execErr != nil {
			return execErr
		}
		credited = true
		return nil
	})
	if err != nil {
		credited = false
	}
	return credited, err
}

// CreateInstanceWithFlags inserts the instance row and its flag set in
// one transaction, so an instance is never observable without its flags.
func (s *Store) CreateInstanceWithFlags(
	ctx context.Context,
	arg CreateInstanceParams,
	flags []string,
) (ChallengeInstance, error) {
	var instance ChallengeInstance
	err := s.execTx(ctx, func(q *Queries) error {
		var txErr error
		instance, txErr = q.CreateInstance(ctx, arg)
		if txErr != nil {
			return txErr
		}
		for _, flag := range flags {
			if _, txErr = q.CreateInstanceFlag(ctx, CreateInstanceFlagParams{
				InstanceID: instance.ID,
				Flag:       flag,
			}); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	return instance, err
}
