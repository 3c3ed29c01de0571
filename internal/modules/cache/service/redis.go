package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Redis: кэш последнего решения, переживающий рестарт.
type Redis struct {
	cli    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		_ = cli.Close()
		return nil, errors.Wrapf(err, "redis ping %s", cfg.Addr)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "signal_engine:last_decision:"
	}
	return &Redis{cli: cli, prefix: prefix, ttl: cfg.TTL}, nil
}

func (r *Redis) Changed(ctx context.Context, symbol, key string) (bool, error) {
	prev, err := r.cli.SetArgs(ctx, r.prefix+symbol, key, redis.SetArgs{Get: true, TTL: r.ttl}).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return true, errors.Wrap(err, "redis set last decision")
	}
	return prev != key, nil
}

func (r *Redis) Close() error { return r.cli.Close() }
