package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/blogauth/auth-service/internal/domain"
)

const userCacheKeyPrefix = "auth:user:"

// CachedUserLookup serves token-to-user resolution from Redis, falling back to
// the repository on a miss. Redis failures degrade to the repository instead
// of failing the request.
type CachedUserLookup struct {
	users  UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserLookup wraps users with a Redis read-through cache. A nil client
// or non-positive ttl disables caching.
func NewCachedUserLookup(users UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedUserLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUserLookup{users: users, client: client, ttl: ttl, logger: logger}
}

// LookupUser returns the public view of username.
func (c *CachedUserLookup) LookupUser(ctx context.Context, username string) (*domain.AuthedUser, error) {
	if !c.enabled() {
		return c.users.LookupUser(ctx, username)
	}

	key := userCacheKeyPrefix + username
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user domain.AuthedUser
		if jsonErr := json.Unmarshal(raw, &user); jsonErr == nil {
			return &user, nil
		}
		c.logger.Warn("discarding corrupt user cache entry", zap.String("username", username))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("user cache read failed", zap.Error(err))
	}

	user, err := c.users.LookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(user); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("user cache write failed", zap.Error(err))
		}
	}
	return user, nil
}

// Forget drops any cached entry for username.
func (c *CachedUserLookup) Forget(ctx context.Context, username string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, userCacheKeyPrefix+username).Err()
}

func (c *CachedUserLookup) enabled() bool {
	return c.client != nil && c.ttl > 0
}
