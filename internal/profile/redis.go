package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "keywords:"

// RedisStore keeps each profile in a hash under keywords:<user>.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(userID string) string { return redisKeyPrefix + userID }

// GetUserKeywords implements Provider.
func (s *RedisStore) GetUserKeywords(ctx context.Context, userID string) (Profile, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(userID)).Result()
	if err != nil {
		return Profile{}, fmt.Errorf("redis hgetall %s: %w", userID, err)
	}
	raw, ok := fields["keywords"]
	if !ok {
		return Profile{}, ErrNotFound
	}

	p := Profile{UserID: userID, Operator: Operator(fields["operator"])}
	if err := json.Unmarshal([]byte(raw), &p.Keywords); err != nil {
		return Profile{}, fmt.Errorf("decode keywords for %s: %w", userID, err)
	}
	p.CreatedAt = parseUnix(fields["created_at"])
	p.UpdatedAt = parseUnix(fields["updated_at"])
	return p, nil
}

// SetKeywords validates and stores a profile.
func (s *RedisStore) SetKeywords(ctx context.Context, p Profile) (Profile, error) {
	p, err := p.Normalize()
	if err != nil {
		return Profile{}, err
	}
	raw, err := json.Marshal(p.Keywords)
	if err != nil {
		return Profile{}, err
	}

	key := redisKey(p.UserID)
	now := time.Now().UTC()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "created_at", now.Unix())
		pipe.HSet(ctx, key,
			"keywords", string(raw),
			"operator", string(p.Operator),
			"updated_at", now.Unix(),
		)
		return nil
	})
	if err != nil {
		return Profile{}, fmt.Errorf("redis store %s: %w", p.UserID, err)
	}
	return s.GetUserKeywords(ctx, p.UserID)
}

// DeleteKeywords removes a profile.
func (s *RedisStore) DeleteKeywords(ctx context.Context, userID string) error {
	n, err := s.rdb.Del(ctx, redisKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis del %s: %w", userID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func parseUnix(s string) time.Time {
	var sec int64
	if _, err := fmt.Sscan(s, &sec); err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
