package tokenstore

import (
	"context"
	"fmt"
	"log"
	"time"

	"accounts_api/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	_, err := RDB.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
	fmt.Println("Successfully connected to Redis!")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		fmt.Println("Redis connection closed.")
	}
}

// Store tracks which refresh token IDs (jti claims) are still live. A refresh
// token may be redeemed at most once; redeeming consumes its jti so a replayed
// token is rejected.
type Store interface {
	Save(ctx context.Context, jti string, ttl time.Duration) error
	// Consume removes jti and reports whether it was live at the time.
	Consume(ctx context.Context, jti string) (bool, error)
	// Revoke removes jti regardless of state.
	Revoke(ctx context.Context, jti string) error
}

const keyPrefix = "refresh_jti:"

type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Save(ctx context.Context, jti string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("tokenstore.Save: %w", err)
	}
	return nil
}

func (s *redisStore) Consume(ctx context.Context, jti string) (bool, error) {
	// DEL is atomic, so two concurrent redemptions of the same token cannot
	// both observe it as live.
	n, err := s.rdb.Del(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("tokenstore.Consume: %w", err)
	}
	return n == 1, nil
}

func (s *redisStore) Revoke(ctx context.Context, jti string) error {
	if err := s.rdb.Del(ctx, keyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("tokenstore.Revoke: %w", err)
	}
	return nil
}
