package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"secret-santa-bot/internal/model"
)

// RedisSessionStore implements SessionStore on top of Redis. Each user
// session is a JSON blob under its own key, so sessions of different users
// never contend.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a redis-backed session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(userID int64) string {
	return "session:" + strconv.FormatInt(userID, 10)
}

func (s *RedisSessionStore) Get(ctx context.Context, userID int64) (model.SessionState, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Idle(), nil
		}
		return model.Idle(), fmt.Errorf("get session: %w", err)
	}

	var state model.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.Idle(), fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, userID int64, state model.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
