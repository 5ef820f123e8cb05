package challenge_service

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/FloatCTF/cdm/internal/database"
)

// Challenge categories, mirroring content management's definitions.
const (
	CategoryWeb     = "Web"
	CategoryPwn     = "Pwn"
	CategoryCrypto  = "Crypto"
	CategoryMisc    = "Misc"
	CategoryReverse = "Reverse"
)

// ChallengeService is the read-only client over content management's
// challenge definitions. Definitions are immutable for the duration of
// an event, so cache entries never need invalidation.
type ChallengeService struct {
	DB    database.Querier
	cache *lru.Cache[int32, database.Challenge]
}

func (c *ChallengeService) Initialize(cacheSize int) error {
	cache, err := lru.New[int32, database.Challenge](cacheSize)
	if err != nil {
		return err
	}
	c.cache = cache
	return nil
}
