package database

import (
	"context"

	"github.com/google/uuid"
)

const createSubmission = `
INSERT INTO submissions (user_id, team_id, challenge_id, instance_id, submitted_flag, is_correct)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, team_id, challenge_id, instance_id, submitted_flag, is_correct, submitted_at
`

type CreateSubmissionParams struct {
	UserID        uuid.UUID
	TeamID        int32
	ChallengeID   int32
	InstanceID    *uuid.UUID
	SubmittedFlag string
	IsCorrect     bool
}

func (q *Queries) CreateSubmission(
	ctx context.Context,
	arg CreateSubmissionParams,
) (Submission, error) {
	row := q.db.QueryRow(
		ctx,
		createSubmission,
		arg.UserID,
		arg.TeamID,
		arg.ChallengeID,
		arg.InstanceID,
		arg.SubmittedFlag,
		arg.IsCorrect,
	)
	var s Submission
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TeamID,
		&s.ChallengeID,
		&s.InstanceID,
		&s.SubmittedFlag,
		&s.IsCorrect,
		&s.SubmittedAt,
	)
	return s, err
}
