package audit_service

import (
	"time"

	"github.com/google/uuid"

	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service/user_service"
)

type AuditService struct {
	DB                database.Querier
	UserServiceConfig *user_service.UserService
}

// Record is one security relevant action to append to the ledger.
// Entries are immutable once written.
type Record struct {
	ActionType  database.ActionType
	UserID      *uuid.UUID
	TeamID      *int32
	ChallengeID *int32
	InstanceID  *uuid.UUID
	Detail      string
}

type LogEntry struct {
	ID          int64               `json:"id"`
	ActionType  database.ActionType `json:"action_type"`
	UserID      *uuid.UUID          `json:"user_id,omitempty"`
	TeamID      *int32              `json:"team_id,omitempty"`
	ChallengeID *int32              `json:"challenge_id,omitempty"`
	InstanceID  *uuid.UUID          `json:"instance_id,omitempty"`
	Detail      string              `json:"detail"`
	CreatedAt   time.Time           `json:"created_at"`
}

type LogFilter struct {
	ActionType  *database.ActionType `json:"action_type"`
	UserID      *uuid.UUID           `json:"user_id"`
	TeamID      *int32               `json:"team_id"`
	ChallengeID *int32               `json:"challenge_id"`
	Limit       int32                `json:"limit" validate:"gte=0,lte=1000"`
}
