package database

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the storage surface the services program against. *Store
// implements it on Postgres; tests provide an in-memory implementation
// that honors the same atomicity guarantees.
type Querier interface {
	// instances
	CreateInstanceWithFlags(ctx context.Context, arg CreateInstanceParams, flags []string) (ChallengeInstance, error)
	MarkInstanceRunning(ctx context.Context, arg MarkInstanceRunningParams) (int64, error)
	MarkInstanceError(ctx context.Context, id uuid.UUID) (int64, error)
	TerminateInstance(ctx context.Context, id uuid.UUID) (ChallengeInstance, error)
	ExpireInstances(ctx context.Context) ([]ChallengeInstance, error)
	GetInstanceByID(ctx context.Context, id uuid.UUID) (ChallengeInstance, error)
	GetActiveInstance(ctx context.Context, arg GetActiveInstanceParams) (ChallengeInstance, error)
	GetRunningInstance(ctx context.Context, arg GetRunningInstanceParams) (ChallengeInstance, error)
	GetInstanceFlags(ctx context.Context, instanceID uuid.UUID) ([]InstanceFlag, error)

	// grading
	CreateSubmission(ctx context.Context, arg CreateSubmissionParams) (Submission, error)
	CreateSolveAndCredit(ctx context.Context, arg CreateSolveAndCreditParams) (bool, error)

	// reference data
	GetChallengeByID(ctx context.Context, id int32) (Challenge, error)
	GetTeamByID(ctx context.Context, id int32) (Team, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)

	// scoreboard
	GetScoreboard(ctx context.Context) ([]ScoreboardRow, error)
	GetTeamScoreDrift(ctx context.Context) ([]TeamScoreDrift, error)
	SetTeamScore(ctx context.Context, arg SetTeamScoreParams) error

	// audit
	CreateLogEntry(ctx context.Context, arg CreateLogEntryParams) (LogEntry, error)
	GetLogEntries(ctx context.Context, arg GetLogEntriesParams) ([]LogEntry, error)
}

var _ Querier = (*Store)(nil)
