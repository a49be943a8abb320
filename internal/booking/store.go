package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a wizard session has expired or never existed.
var ErrNoSession = errors.New("no active booking session")

// Store persists wizard snapshots between requests.
type Store interface {
	Save(ctx context.Context, userID string, state State) error
	Load(ctx context.Context, userID string) (State, error)
	Delete(ctx context.Context, userID string) error
}

// RedisStore keeps one wizard per user in redis with a TTL, so abandoned
// bookings expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a wizard store on the given redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(userID string) string {
	return "booking:wizard:" + userID
}

// Save serializes the wizard state under the user's session key.
func (s *RedisStore) Save(ctx context.Context, userID string, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store wizard state: %w", err)
	}
	return nil
}

// Load retrieves the wizard state, returning ErrNoSession when absent.
func (s *RedisStore) Load(ctx context.Context, userID string) (State, error) {
	var state State
	payload, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return state, ErrNoSession
	}
	if err != nil {
		return state, fmt.Errorf("failed to load wizard state: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return state, fmt.Errorf("failed to decode wizard state: %w", err)
	}
	return state, nil
}

// Delete removes the wizard state, typically after confirmation.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard state: %w", err)
	}
	return nil
}
