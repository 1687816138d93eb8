package profile

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backends accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendNone     = "none"
)

// Store is a writable Provider.
type Store interface {
	Provider
	SetKeywords(ctx context.Context, p Profile) (Profile, error)
	DeleteKeywords(ctx context.Context, userID string) error
	Close() error
}

// Settings select and address a profile backend.
type Settings struct {
	Backend       string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open connects to the configured backend. BackendNone yields a nil Store.
func Open(ctx context.Context, s Settings) (Store, error) {
	switch s.Backend {
	case BackendPostgres:
		return OpenSQL(ctx, DialectPostgres, s.DSN)
	case BackendSQLite:
		return OpenSQL(ctx, DialectSQLite, s.DSN)
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPassword, DB: s.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis %s: %w", s.RedisAddr, err)
		}
		return NewRedisStore(rdb), nil
	case BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported profile backend %q", s.Backend)
	}
}
