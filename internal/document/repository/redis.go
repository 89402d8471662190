package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror stores the snapshot as a single string value. SET replaces
// the value atomically.
type RedisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisMirror creates a Redis-backed mirror. Key may be empty.
func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	if key == "" {
		key = "archive:documents"
	}
	return &RedisMirror{client: client, key: key}
}

func (r *RedisMirror) Name() string { return "redis" }

func (r *RedisMirror) Read(ctx context.Context) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSnapshotMissing
		}
		return nil, err
	}
	return b, nil
}

func (r *RedisMirror) Write(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0).Err()
}

// Quarantine renames the key to <key>:corrupt:<unix seconds>.
func (r *RedisMirror) Quarantine(ctx context.Context) (string, error) {
	dst := fmt.Sprintf("%s:corrupt:%d", r.key, time.Now().Unix())
	if err := r.client.Rename(ctx, r.key, dst).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSnapshotMissing
		}
		return "", err
	}
	return dst, nil
}
