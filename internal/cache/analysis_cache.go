package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"personaquiz/internal/model"
)

// AnalysisCache is a read-through copy of stored analyses. Mongo stays the
// source of truth; a miss is never an error.
type AnalysisCache interface {
	Get(ctx context.Context, sessionID string) (*model.AnalysisResult, error)
	Set(ctx context.Context, result *model.AnalysisResult) error
	Delete(ctx context.Context, sessionID string) error
}

type analysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache creates a new analysis cache
func NewAnalysisCache(client *redis.Client, ttl time.Duration) AnalysisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &analysisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *analysisCache) key(sessionID string) string {
	return fmt.Sprintf("chat:%s:analysis", sessionID)
}

func (c *analysisCache) Get(ctx context.Context, sessionID string) (*model.AnalysisResult, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *analysisCache) Set(ctx context.Context, result *model.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(result.SessionID), data, c.ttl).Err()
}

func (c *analysisCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
