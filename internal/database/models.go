package database

import (
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	InstanceStatusPending InstanceStatus = "pending"
	InstanceStatusRunning InstanceStatus = "running"
	InstanceStatusStopped InstanceStatus = "stopped"
	InstanceStatusError   InstanceStatus = "error"
)

type ActionType string

const (
	ActionStart      ActionType = "start"
	ActionDestroy    ActionType = "destroy"
	ActionSubmit     ActionType = "submit"
	ActionLogin      ActionType = "login"
	ActionJoinTeam   ActionType = "join_team"
	ActionCreateTeam ActionType = "create_team"
)

type Team struct {
	ID        int32
	TeamName  string
	Score     int32
	IsBanned  bool
	CreatedAt time.Time
}

type User struct {
	ID        uuid.UUID
	UserName  string
	TeamID    *int32
	UserRole  string
	CreatedAt time.Time
}

type Challenge struct {
	ID            int32
	ChallengeName string
	Category      string
	Points        int32
	IsDynamicFlag bool
	StaticFlag    *string
	TtlSeconds    int32
	ComposeFile   *string
	CreatedAt     time.Time
}

type ChallengeInstance struct {
	ID          uuid.UUID
	TeamID      int32
	ChallengeID int32
	RequestedBy uuid.UUID
	Status      InstanceStatus
	Endpoint    *string
	CreatedAt   time.Time
	EndAt       time.Time
	DestroyAt   *time.Time
}

type InstanceFlag struct {
	ID         int64
	InstanceID uuid.UUID
	Flag       string
	CreatedAt  time.Time
}

type Submission struct {
	ID            int64
	UserID        uuid.UUID
	TeamID        int32
	ChallengeID   int32
	InstanceID    *uuid.UUID
	SubmittedFlag string
	IsCorrect     bool
	SubmittedAt   time.Time
}

type Solve struct {
	ID          int64
	UserID      uuid.UUID
	TeamID      int32
	ChallengeID int32
	InstanceID  *uuid.UUID
	SolvedAt    time.Time
}

type LogEntry struct {
	ID          int64
	ActionType  ActionType
	UserID      *uuid.UUID
	TeamID      *int32
	ChallengeID *int32
	InstanceID  *uuid.UUID
	Detail      string
	CreatedAt   time.Time
}

// ScoreboardRow is one ranked standing derived from solves. The team's
// cached score column takes no part in it.
type ScoreboardRow struct {
	TeamID      int32
	TeamName    string
	Score       int64
	LastSolveAt *time.Time
}

// TeamScoreDrift pairs a team's cached score with the total derived from
// its solves, for consistency repair.
type TeamScoreDrift struct {
	TeamID        int32
	CachedScore   int32
	ComputedScore int64
}
