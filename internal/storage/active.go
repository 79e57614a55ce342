package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// The active-session pointer is the UI-visible "there is an interview
// in progress" flag, keyed by the interviewee client's stable id. It is
// deliberately separate from the durable session record: Start Over
// clears the pointer without touching the record.

const activeKeyPrefix = "interview:active:"

// RedisActiveTracker tracks active-session pointers in Redis so resume
// offers survive an engine restart.
type RedisActiveTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisActiveTracker connects to Redis and verifies connectivity
func NewRedisActiveTracker(address, password string, db int) (*RedisActiveTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisActiveTracker{
		client: client,
		ttl:    24 * time.Hour,
	}, nil
}

// Set points the client at its in-progress session
func (t *RedisActiveTracker) Set(ctx context.Context, clientID, sessionID string) error {
	if err := t.client.Set(ctx, activeKeyPrefix+clientID, sessionID, t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set active session: %w", err)
	}
	return nil
}

// Get returns the client's active session id, or "" if none
func (t *RedisActiveTracker) Get(ctx context.Context, clientID string) (string, error) {
	val, err := t.client.Get(ctx, activeKeyPrefix+clientID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get active session: %w", err)
	}
	return val, nil
}

// Clear removes the client's active-session pointer
func (t *RedisActiveTracker) Clear(ctx context.Context, clientID string) error {
	if err := t.client.Del(ctx, activeKeyPrefix+clientID).Err(); err != nil {
		return fmt.Errorf("failed to clear active session: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (t *RedisActiveTracker) Close() error {
	return t.client.Close()
}

// MemoryActiveTracker is the in-process tracker used by tests and
// storage-less development runs. Pointers do not survive a restart.
type MemoryActiveTracker struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryActiveTracker creates an empty in-memory tracker
func NewMemoryActiveTracker() *MemoryActiveTracker {
	return &MemoryActiveTracker{entries: make(map[string]string)}
}

func (t *MemoryActiveTracker) Set(ctx context.Context, clientID, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[clientID] = sessionID
	return nil
}

func (t *MemoryActiveTracker) Get(ctx context.Context, clientID string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[clientID], nil
}

func (t *MemoryActiveTracker) Clear(ctx context.Context, clientID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, clientID)
	return nil
}

func (t *MemoryActiveTracker) Close() error { return nil }
