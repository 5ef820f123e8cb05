package scoreboard_service

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FloatCTF/cdm/internal/database"
)

const (
	scoreboardCacheKey = "cdm:scoreboard"

	DefaultCacheTTL = 10 * time.Second
)

// ScoreboardService serves ranked standings derived from solves. A redis
// cache in front of the derivation query absorbs the read load during a
// contest; a nil client disables caching without changing behaviour.
type ScoreboardService struct {
	DB       database.Querier
	Cache    *redis.Client
	CacheTTL time.Duration
}

type Standing struct {
	Rank        int32      `json:"rank"`
	TeamID      int32      `json:"team_id"`
	TeamName    string     `json:"team_name"`
	Score       int64      `json:"score"`
	LastSolveAt *time.Time `json:"last_solve_at,omitempty"`
}
