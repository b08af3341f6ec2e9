// Package cache holds Redis-backed adapters.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
)

const handleKeyPrefix = "otp:handle:"

// RedisHandleStore implements otp.HandleStore backed by Redis.
type RedisHandleStore struct {
	client redis.UniversalClient
}

var _ otp.HandleStore = (*RedisHandleStore)(nil)

// NewRedisHandleStore constructs a Redis-backed handle store.
func NewRedisHandleStore(client redis.UniversalClient) *RedisHandleStore {
	return &RedisHandleStore{client: client}
}

// Save stores the encoded pending verification with TTL.
func (s *RedisHandleStore) Save(ctx context.Context, handle string, pending otp.PendingVerification, ttl time.Duration) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending verification: %w", err)
	}
	if err := s.client.Set(ctx, handleKeyPrefix+handle, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist pending verification: %w", err)
	}
	return nil
}

// Get loads and decodes the pending verification, nil when absent.
func (s *RedisHandleStore) Get(ctx context.Context, handle string) (*otp.PendingVerification, error) {
	bytes, err := s.client.Get(ctx, handleKeyPrefix+handle).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load pending verification: %w", err)
	}
	var pending otp.PendingVerification
	if err := json.Unmarshal(bytes, &pending); err != nil {
		return nil, fmt.Errorf("decode pending verification: %w", err)
	}
	return &pending, nil
}

// Delete removes the handle key.
func (s *RedisHandleStore) Delete(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, handleKeyPrefix+handle).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete pending verification: %w", err)
	}
	return nil
}
