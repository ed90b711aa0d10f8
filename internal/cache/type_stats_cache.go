package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"personaquiz/internal/model"
)

// TypeStatsCache counts personality codes per quiz in a Redis ZSET
type TypeStatsCache interface {
	Increment(ctx context.Context, quizID, code string) error
	// Top returns up to limit codes, most frequent first. limit <= 0 returns all.
	Top(ctx context.Context, quizID string, limit int) ([]model.CodeCount, error)
	// Seed replaces the counts for a quiz
	Seed(ctx context.Context, quizID string, counts []model.CodeCount) error
}

type typeStatsCache struct {
	client *redis.Client
}

// NewTypeStatsCache creates a new type stats cache
func NewTypeStatsCache(client *redis.Client) TypeStatsCache {
	return &typeStatsCache{
		client: client,
	}
}

func (c *typeStatsCache) key(quizID string) string {
	return fmt.Sprintf("quiz:%s:types", quizID)
}

func (c *typeStatsCache) Increment(ctx context.Context, quizID, code string) error {
	return c.client.ZIncrBy(ctx, c.key(quizID), 1, code).Err()
}

func (c *typeStatsCache) Top(ctx context.Context, quizID string, limit int) ([]model.CodeCount, error) {
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(quizID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.CodeCount, len(results))
	for i, z := range results {
		code, _ := z.Member.(string)
		entries[i] = model.CodeCount{
			Code:  code,
			Count: int(z.Score),
		}
	}
	return entries, nil
}

func (c *typeStatsCache) Seed(ctx context.Context, quizID string, counts []model.CodeCount) error {
	if len(counts) == 0 {
		return nil
	}
	members := make([]redis.Z, len(counts))
	for i, cc := range counts {
		members[i] = redis.Z{Score: float64(cc.Count), Member: cc.Code}
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key(quizID))
	pipe.ZAdd(ctx, c.key(quizID), members...)
	_, err := pipe.Exec(ctx)
	return err
}
