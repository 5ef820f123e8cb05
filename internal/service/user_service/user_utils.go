package user_service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
)

func (u *UserService) FetchUserFromClaims(ctx context.Context) (user database.User, err error) {
	claims, err := service.GetClaimsFromContext(ctx)
	if err != nil {
		return
	}

	user, dbErr := u.DB.GetUserByID(ctx, claims.UserId)
	if dbErr != nil {
		if errors.Is(dbErr, pgx.ErrNoRows) {
			err = fmt.Errorf(
				"%w, no user exist with id %v",
				ctf_errors.ErrUnAuthorized,
				claims.UserId,
			)
			return user, err
		}
		log.Errorf("failed to get user by id. %v", dbErr)
		err = errors.Join(ctf_errors.ErrInternal, dbErr)
		return user, err
	}
	return user, nil
}

// FetchUserTeam resolves the team a user plays for. Instance and
// submission operations are team scoped, so a teamless user cannot use
// them.
func (u *UserService) FetchUserTeam(
	ctx context.Context,
	user database.User,
) (team database.Team, err error) {
	if user.TeamID == nil {
		err = fmt.Errorf(
			"%w, user %s is not part of any team",
			ctf_errors.ErrInvalidRequest,
			user.UserName,
		)
		return
	}

	team, dbErr := u.DB.GetTeamByID(ctx, *user.TeamID)
	if dbErr != nil {
		if errors.Is(dbErr, pgx.ErrNoRows) {
			err = fmt.Errorf(
				"%w, team with id %v referenced by user %s does not exist",
				ctf_errors.ErrInternal,
				*user.TeamID,
				user.UserName,
			)
			log.Error(err)
			return team, err
		}
		log.Errorf("failed to get team by id. %v", dbErr)
		err = errors.Join(ctf_errors.ErrInternal, dbErr)
		return team, err
	}
	return team, nil
}

func (u *UserService) AuthorizeUserRole(
	ctx context.Context,
	user database.User,
	role UserRole,
	warnMessage string,
) error {
	if UserRole(user.UserRole) == role {
		return nil
	}
	if warnMessage != "" {
		log.Warn(warnMessage)
	}
	return ctf_errors.ErrUnAuthorized
}
