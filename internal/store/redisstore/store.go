package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const captchaPrefix = "captcha:"

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) SetCaptcha(ctx context.Context, id, answer string, ttl time.Duration) error {
	return s.rdb.Set(ctx, captchaPrefix+id, answer, ttl).Err()
}

// GetCaptcha returns redis.Nil when the challenge is unknown or expired.
func (s *Store) GetCaptcha(ctx context.Context, id string) (string, error) {
	return s.rdb.Get(ctx, captchaPrefix+id).Result()
}

func (s *Store) DeleteCaptcha(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, captchaPrefix+id).Err()
}
