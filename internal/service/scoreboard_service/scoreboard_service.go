package scoreboard_service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
)

// GetScoreboard returns the current standings, cache first. Ranks are
// dense positions in the derived ordering: score descending, earlier
// last solve first.
func (s *ScoreboardService) GetScoreboard(ctx context.Context) ([]Standing, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, scoreboardCacheKey).Bytes()
		if err == nil {
			var standings []Standing
			if jsonErr := json.Unmarshal(cached, &standings); jsonErr == nil {
				return standings, nil
			}
			// a corrupt cache entry falls through to the derivation
			log.Warn("scoreboard cache entry is unreadable, deriving from solves")
		} else if !errors.Is(err, redis.Nil) {
			log.Errorf("scoreboard cache read failed, %v", err)
		}
	}

	rows, err := s.DB.GetScoreboard(ctx)
	if err != nil {
		log.Errorf("failed to derive scoreboard, %v", err)
		return nil, errors.Join(ctf_errors.ErrInternal, err)
	}

	standings := make([]Standing, 0, len(rows))
	for idx, row := range rows {
		standings = append(standings, Standing{
			Rank:        int32(idx + 1),
			TeamID:      row.TeamID,
			TeamName:    row.TeamName,
			Score:       row.Score,
			LastSolveAt: row.LastSolveAt,
		})
	}

	if s.Cache != nil {
		s.fillCache(ctx, standings)
	}
	return standings, nil
}

// Invalidate drops the cached standings. Called after every scoring
// event so readers never see a solve reflected late for long.
func (s *ScoreboardService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, scoreboardCacheKey).Err(); err != nil {
		log.Errorf("scoreboard cache invalidation failed, %v", err)
	}
}

// RepairTeamScores reconciles every team's cached score column with the
// total derived from its solves and returns how many were corrected.
func (s *ScoreboardService) RepairTeamScores(ctx context.Context) (int, error) {
	drifted, err := s.DB.GetTeamScoreDrift(ctx)
	if err != nil {
		log.Errorf("failed to compute score drift, %v", err)
		return 0, errors.Join(ctf_errors.ErrInternal, err)
	}

	repaired := 0
	for _, d := range drifted {
		log.WithFields(log.Fields{
			"team_id":  d.TeamID,
			"cached":   d.CachedScore,
			"computed": d.ComputedScore,
		}).Warn("team score drifted, repairing")

		if err := s.DB.SetTeamScore(ctx, database.SetTeamScoreParams{
			ID:    d.TeamID,
			Score: int32(d.ComputedScore),
		}); err != nil {
			log.Errorf("failed to repair score of team %v, %v", d.TeamID, err)
			return repaired, errors.Join(ctf_errors.ErrInternal, err)
		}
		repaired++
	}

	if repaired > 0 {
		s.Invalidate(ctx)
	}
	return repaired, nil
}

func (s *ScoreboardService) fillCache(ctx context.Context, standings []Standing) {
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	payload, err := json.Marshal(standings)
	if err != nil {
		log.Errorf("cannot marshal scoreboard for caching, %v", err)
		return
	}
	if err := s.Cache.Set(ctx, scoreboardCacheKey, payload, ttl).Err(); err != nil {
		log.Errorf("scoreboard cache write failed, %v", err)
	}
}
