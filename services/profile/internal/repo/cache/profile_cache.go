package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"thsnd/pkg/logger"
	"thsnd/services/profile/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "profile:"
	generationPrefix = "profile_gen:"
)

var errStaleProfile = errors.New("profile invalidated since read")

// ProfileCache keeps rendered public profiles in redis. A nil client turns
// every call into a miss; redis errors are logged and also count as a miss.
//
// Every Invalidate bumps a per-profile generation. Get hands the current
// generation to the caller on a miss, and Set only stores the profile if no
// invalidation happened in between.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewProfileCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *ProfileCache {
	return &ProfileCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func key(customURL string) string {
	return keyPrefix + customURL
}

func generationKey(customURL string) string {
	return generationPrefix + customURL
}

func (c *ProfileCache) Get(ctx context.Context, customURL string) (*entity.PublicProfile, int64, bool) {
	if c == nil || c.client == nil {
		return nil, 0, false
	}

	values, err := c.client.MGet(ctx, key(customURL), generationKey(customURL)).Result()
	if err != nil {
		c.logger.Warn("Profile cache read failed for %s: %v", customURL, err)
		return nil, 0, false
	}

	var generation int64
	if raw, ok := values[1].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			c.logger.Warn("Bad cache generation for %s: %v", customURL, err)
		}
	}

	raw, ok := values[0].(string)
	if !ok {
		return nil, generation, false
	}

	var profile entity.PublicProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		c.logger.Warn("Dropping corrupt cached profile %s: %v", customURL, err)
		c.Invalidate(ctx, customURL)
		return nil, generation + 1, false
	}
	return &profile, generation, true
}

// Set stores profile unless it was invalidated after generation was read.
func (c *ProfileCache) Set(ctx context.Context, profile *entity.PublicProfile, generation int64) {
	if c == nil || c.client == nil || profile == nil {
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		c.logger.Warn("Failed to encode profile %s for cache: %v", profile.CustomURL, err)
		return
	}

	genKey := generationKey(profile.CustomURL)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleProfile
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(profile.CustomURL), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleProfile), errors.Is(err, redis.TxFailedErr):
		// a write raced this read; the next miss caches the new state
	default:
		c.logger.Warn("Profile cache write failed for %s: %v", profile.CustomURL, err)
	}
}

func (c *ProfileCache) Invalidate(ctx context.Context, customURL string) {
	if c == nil || c.client == nil {
		return
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(customURL))
		pipe.Del(ctx, key(customURL))
		return nil
	})
	if err != nil {
		c.logger.Warn("Profile cache invalidation failed for %s: %v", customURL, err)
	}
}
