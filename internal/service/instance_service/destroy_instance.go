package instance_service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/user_service"
)

// DestroyInstance moves an instance to stopped and tears its environment
// down. Destroying an already terminal instance is a no-op, not an
// error.
func (i *InstanceService) DestroyInstance(
	ctx context.Context,
	instanceID uuid.UUID,
) (Instance, error) {
	var instance Instance

	user, err := i.UserServiceConfig.FetchUserFromClaims(ctx)
	if err != nil {
		return instance, err
	}

	dbInstance, err := i.DB.GetInstanceByID(ctx, instanceID)
	if err != nil {
		return instance, ctf_errors.HandleDBErrors(
			err,
			nil,
			fmt.Sprintf("failed to fetch instance %v", instanceID),
		)
	}

	// a player may only destroy their own team's instance. admins may
	// destroy any.
	if user.TeamID == nil || *user.TeamID != dbInstance.TeamID {
		if roleErr := i.UserServiceConfig.AuthorizeUserRole(
			ctx,
			user,
			user_service.RoleAdmin,
			fmt.Sprintf(
				"user %s tried to destroy instance %v of team %v",
				user.UserName,
				instanceID,
				dbInstance.TeamID,
			),
		); roleErr != nil {
			return instance, roleErr
		}
	}

	terminated, err := i.DB.TerminateInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// someone else got there first, report the terminal row as is
			return dbInstanceToServiceInstance(dbInstance), nil
		}
		log.Errorf("failed to terminate instance %v, %v", instanceID, err)
		return instance, errors.Join(ctf_errors.ErrInternal, err)
	}

	auditErr := i.AuditServiceConfig.Append(ctx, audit_service.Record{
		ActionType:  database.ActionDestroy,
		UserID:      &user.ID,
		TeamID:      &terminated.TeamID,
		ChallengeID: &terminated.ChallengeID,
		InstanceID:  &terminated.ID,
		Detail:      "instance destroyed on request",
	})
	if auditErr != nil {
		log.Errorf("instance %v destroyed but audit append failed, %v", terminated.ID, auditErr)
	}

	go i.teardown(terminated.ID)

	log.WithFields(log.Fields{
		"instance_id": terminated.ID,
		"team_id":     terminated.TeamID,
	}).Info("instance destroyed")

	return dbInstanceToServiceInstance(terminated), nil
}
