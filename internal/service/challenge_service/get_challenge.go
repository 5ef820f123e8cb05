package challenge_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
)

func (c *ChallengeService) GetChallengeByID(
	ctx context.Context,
	challengeID int32,
) (database.Challenge, error) {
	if c.cache != nil {
		if challenge, ok := c.cache.Get(challengeID); ok {
			return challenge, nil
		}
	}

	challenge, err := c.DB.GetChallengeByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return challenge, fmt.Errorf(
				"%w, no challenge with id %v",
				ctf_errors.ErrChallengeNotFound,
				challengeID,
			)
		}
		log.Errorf("failed to fetch challenge with id %v, %v", challengeID, err)
		return challenge, errors.Join(ctf_errors.ErrInternal, err)
	}

	if c.cache != nil {
		c.cache.Add(challengeID, challenge)
	}
	return challenge, nil
}

// InstanceTTL is the per-challenge instance lifetime supplied by content
// management. There is no extension mechanism; a longer run requires
// destroy and create.
func InstanceTTL(challenge database.Challenge) (time.Duration, error) {
	if challenge.TtlSeconds <= 0 {
		return 0, fmt.Errorf(
			"%w, challenge %s has non-positive ttl %v",
			ctf_errors.ErrInternal,
			challenge.ChallengeName,
			challenge.TtlSeconds,
		)
	}
	return time.Duration(challenge.TtlSeconds) * time.Second, nil
}
