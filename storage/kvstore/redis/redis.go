// Package redisstore keeps each visitor's storage in one redis hash.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
)

type Backend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger core.Logger
}

var _ session.Backend = (*Backend)(nil)

// NewClient connects to redis and pings it.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// NewBackend stores visitor hashes under `prefix`; every write pushes the hash expiry `ttl` forward.
func NewBackend(client *redis.Client, prefix string, ttl time.Duration, logger core.Logger) *Backend {
	return &Backend{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (b *Backend) key(visitorID string) string {
	return b.prefix + visitorID
}

// For binds the storage of `visitorID` to `ctx`; an empty id has no storage.
func (b *Backend) For(ctx context.Context, visitorID string) session.Storage {
	if visitorID == "" {
		return nil
	}
	return &storage{backend: b, ctx: ctx, key: b.key(visitorID)}
}

type storage struct {
	backend *Backend
	ctx     context.Context
	key     string
}

// Get treats redis failures as a missing key.
func (s *storage) Get(field string) (string, bool) {
	val, err := s.backend.client.HGet(s.ctx, s.key, field).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("reading session storage", errors.Wrap(err, s.key))
		}
		return "", false
	}
	return val, true
}

func (s *storage) Set(field, value string) error {
	_, err := s.backend.client.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(s.ctx, s.key, field, value)
		if s.backend.ttl > 0 {
			pipe.Expire(s.ctx, s.key, s.backend.ttl)
		}
		return nil
	})
	return errors.Wrapf(writeErr(err), "setting %s", field)
}

func (s *storage) Remove(field string) error {
	return errors.Wrapf(writeErr(s.backend.client.HDel(s.ctx, s.key, field).Err()), "removing %s", field)
}

// writeErr turns a closed client into a shutdown error: no session can be written anymore.
func writeErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return core.NewShutdownError("session storage closed")
	}
	return err
}
