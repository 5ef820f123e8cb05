package instance_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/challenge_service"
)

func (i *InstanceService) CreateInstance(
	ctx context.Context,
	request CreateInstanceRequest,
) (Instance, error) {
	var instance Instance

	if err := service.ValidateInput(request); err != nil {
		return instance, err
	}

	user, err := i.UserServiceConfig.FetchUserFromClaims(ctx)
	if err != nil {
		return instance, err
	}
	team, err := i.UserServiceConfig.FetchUserTeam(ctx, user)
	if err != nil {
		return instance, err
	}
	if team.IsBanned {
		return instance, fmt.Errorf(
			"%w, team %s is banned and cannot launch instances",
			ctf_errors.ErrTeamBanned,
			team.TeamName,
		)
	}

	challenge, err := i.ChallengeServiceConfig.GetChallengeByID(ctx, request.ChallengeID)
	if err != nil {
		return instance, err
	}
	ttl, err := challenge_service.InstanceTTL(challenge)
	if err != nil {
		return instance, err
	}

	flags, err := i.FlagServiceConfig.MintFlags(challenge)
	if err != nil {
		return instance, err
	}

	dbInstance, err := i.DB.CreateInstanceWithFlags(
		ctx,
		database.CreateInstanceParams{
			TeamID:      team.ID,
			ChallengeID: challenge.ID,
			RequestedBy: user.ID,
			EndAt:       time.Now().Add(ttl),
		},
		flags,
	)
	if err != nil {
		if ctf_errors.IsUniqueViolation(err, database.UqActiveInstance) {
			return instance, fmt.Errorf(
				"%w, team %s already has an active instance of challenge %s",
				ctf_errors.ErrConflict,
				team.TeamName,
				challenge.ChallengeName,
			)
		}
		log.Errorf("failed to create instance row, %v", err)
		return instance, errors.Join(ctf_errors.ErrInternal, err)
	}

	auditErr := i.AuditServiceConfig.Append(ctx, audit_service.Record{
		ActionType:  database.ActionStart,
		UserID:      &user.ID,
		TeamID:      &team.ID,
		ChallengeID: &challenge.ID,
		InstanceID:  &dbInstance.ID,
		Detail:      fmt.Sprintf("instance of %s requested", challenge.ChallengeName),
	})
	if auditErr != nil {
		log.Errorf("instance %v created but audit append failed, %v", dbInstance.ID, auditErr)
	}

	// provisioning happens off the request path. the caller polls the
	// instance until it leaves pending.
	go i.provision(dbInstance, challenge, flags[0])

	log.WithFields(log.Fields{
		"instance_id": dbInstance.ID,
		"team_id":     team.ID,
		"challenge":   challenge.ChallengeName,
	}).Info("instance created, provisioning started")

	return dbInstanceToServiceInstance(dbInstance), nil
}

// GetActiveInstance returns the caller's team's live instance of a
// challenge, if any.
func (i *InstanceService) GetActiveInstance(
	ctx context.Context,
	challengeID int32,
) (Instance, error) {
	var instance Instance

	user, err := i.UserServiceConfig.FetchUserFromClaims(ctx)
	if err != nil {
		return instance, err
	}
	team, err := i.UserServiceConfig.FetchUserTeam(ctx, user)
	if err != nil {
		return instance, err
	}

	dbInstance, err := i.DB.GetActiveInstance(ctx, database.GetActiveInstanceParams{
		TeamID:      team.ID,
		ChallengeID: challengeID,
	})
	if err != nil {
		return instance, ctf_errors.HandleDBErrors(
			err,
			nil,
			fmt.Sprintf("failed to fetch active instance for team %v", team.ID),
		)
	}
	return dbInstanceToServiceInstance(dbInstance), nil
}
