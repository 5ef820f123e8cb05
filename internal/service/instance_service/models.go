package instance_service

import (
	"time"

	"github.com/google/uuid"

	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/provisioner"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/challenge_service"
	"github.com/FloatCTF/cdm/internal/service/flag_service"
	"github.com/FloatCTF/cdm/internal/service/user_service"
)

const (
	DefaultSweepInterval    = 30 * time.Second
	DefaultProvisionTimeout = 5 * time.Minute
)

type InstanceService struct {
	DB                     database.Querier
	UserServiceConfig      *user_service.UserService
	ChallengeServiceConfig *challenge_service.ChallengeService
	FlagServiceConfig      *flag_service.FlagService
	AuditServiceConfig     *audit_service.AuditService
	Provisioner            provisioner.Provisioner

	// SweepInterval is the period of the expiry sweep, zero means
	// DefaultSweepInterval.
	SweepInterval time.Duration
	// ProvisionTimeout bounds one provisioner start from the moment the
	// pending row is committed.
	ProvisionTimeout time.Duration
}

type CreateInstanceRequest struct {
	ChallengeID int32 `json:"challenge_id" validate:"required,gte=1"`
}

type Instance struct {
	ID          uuid.UUID               `json:"instance_id"`
	TeamID      int32                   `json:"team_id"`
	ChallengeID int32                   `json:"challenge_id"`
	RequestedBy uuid.UUID               `json:"requested_by"`
	Status      database.InstanceStatus `json:"status"`
	Endpoint    *string                 `json:"endpoint,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	EndAt       time.Time               `json:"end_at"`
	DestroyAt   *time.Time              `json:"destroy_at,omitempty"`
}

func dbInstanceToServiceInstance(dbInstance database.ChallengeInstance) Instance {
	return Instance{
		ID:          dbInstance.ID,
		TeamID:      dbInstance.TeamID,
		ChallengeID: dbInstance.ChallengeID,
		RequestedBy: dbInstance.RequestedBy,
		Status:      dbInstance.Status,
		Endpoint:    dbInstance.Endpoint,
		CreatedAt:   dbInstance.CreatedAt,
		EndAt:       dbInstance.EndAt,
		DestroyAt:   dbInstance.DestroyAt,
	}
}
