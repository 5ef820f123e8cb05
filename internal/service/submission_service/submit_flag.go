package submission_service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/flag_service"
)

// SubmitFlag grades one claimed flag against the caller's team's running
// instance of the challenge. Every attempt is recorded before grading
// decides anything, correct or not.
func (s *SubmissionService) SubmitFlag(
	ctx context.Context,
	request SubmitFlagRequest,
) (SubmitFlagResult, error) {
	var result SubmitFlagResult

	if err := service.ValidateInput(request); err != nil {
		return result, err
	}

	user, err := s.UserServiceConfig.FetchUserFromClaims(ctx)
	if err != nil {
		return result, err
	}
	team, err := s.UserServiceConfig.FetchUserTeam(ctx, user)
	if err != nil {
		return result, err
	}

	challenge, err := s.ChallengeServiceConfig.GetChallengeByID(ctx, request.ChallengeID)
	if err != nil {
		return result, err
	}

	instance, err := s.DB.GetRunningInstance(ctx, database.GetRunningInstanceParams{
		TeamID:      team.ID,
		ChallengeID: challenge.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, fmt.Errorf(
				"%w, team %s has no running instance of challenge %s",
				ctf_errors.ErrNoActiveInstance,
				team.TeamName,
				challenge.ChallengeName,
			)
		}
		log.Errorf("failed to fetch running instance for grading, %v", err)
		return result, errors.Join(ctf_errors.ErrInternal, err)
	}

	flags, err := s.DB.GetInstanceFlags(ctx, instance.ID)
	if err != nil {
		log.Errorf("failed to fetch flags of instance %v, %v", instance.ID, err)
		return result, errors.Join(ctf_errors.ErrInternal, err)
	}

	correct := flag_service.Matches(request.Flag, flags)

	// the attempt is on record whatever grading says
	_, err = s.DB.CreateSubmission(ctx, database.CreateSubmissionParams{
		UserID:        user.ID,
		TeamID:        team.ID,
		ChallengeID:   challenge.ID,
		InstanceID:    &instance.ID,
		SubmittedFlag: request.Flag,
		IsCorrect:     correct,
	})
	if err != nil {
		log.Errorf("failed to record submission, %v", err)
		return result, errors.Join(ctf_errors.ErrInternal, err)
	}

	auditErr := s.AuditServiceConfig.Append(ctx, audit_service.Record{
		ActionType:  database.ActionSubmit,
		UserID:      &user.ID,
		TeamID:      &team.ID,
		ChallengeID: &challenge.ID,
		InstanceID:  &instance.ID,
		Detail:      fmt.Sprintf("submission graded correct=%v", correct),
	})
	if auditErr != nil {
		log.Errorf("submission recorded but audit append failed, %v", auditErr)
	}

	if !correct {
		return result, nil
	}
	result.Correct = true

	credited, err := s.DB.CreateSolveAndCredit(ctx, database.CreateSolveAndCreditParams{
		UserID:      user.ID,
		TeamID:      team.ID,
		ChallengeID: challenge.ID,
		InstanceID:  &instance.ID,
		Points:      challenge.Points,
	})
	if err != nil {
		log.Errorf("failed to credit solve for user %s, %v", user.UserName, err)
		return result, errors.Join(ctf_errors.ErrInternal, err)
	}

	if !credited {
		// correct, but this user already solved the challenge. nothing
		// was scored
		result.AlreadySolved = true
		return result, nil
	}

	result.PointsAwarded = challenge.Points
	s.ScoreboardServiceConfig.Invalidate(ctx)

	log.WithFields(log.Fields{
		"user":      user.UserName,
		"team_id":   team.ID,
		"challenge": challenge.ChallengeName,
		"points":    challenge.Points,
	}).Info("challenge solved")

	return result, nil
}
