package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"privatize-quote/internal/steps"
)

const defaultSessionTTL = 24 * time.Hour

var ErrSessionNotFound = errors.New("session not found")

// Storage keeps wizard sessions as JSON under state:{sessionID}.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing client. A zero ttl falls back to 24h.
func New(client *redis.Client, ttl time.Duration) *Storage {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Storage{client: client, ttl: ttl}
}

func (s *Storage) SaveSession(ctx context.Context, sessionID string, w *steps.Wizard) error {
	const operation = "redis.SaveSession"

	data, err := encodeSession(w)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := s.client.Set(ctx, buildStateKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// GetSession returns ErrSessionNotFound once the session expired or was
// dropped.
func (s *Storage) GetSession(ctx context.Context, sessionID string) (*steps.Wizard, error) {
	const operation = "redis.GetSession"

	data, err := s.client.Get(ctx, buildStateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %s: %w", operation, sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get state: %w", operation, err)
	}

	w, err := decodeSession(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return w, nil
}

func (s *Storage) DropSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, buildStateKey(sessionID)).Err()
}

// CheckRateLimit counts hits on key within window and reports whether the
// caller is still under limit.
func (s *Storage) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	const operation = "redis.CheckRateLimit"

	rk := buildRateKey(key)
	count, err := s.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", operation, err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, fmt.Errorf("%s: %w", operation, err)
		}
	}
	return count <= limit, nil
}

func encodeSession(w *steps.Wizard) ([]byte, error) {
	if w == nil || w.Model == nil {
		return nil, errors.New("marshal state: empty wizard")
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*steps.Wizard, error) {
	var w steps.Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal failure: %w", err)
	}
	if w.Model == nil {
		return nil, errors.New("unmarshal failure: session has no selection")
	}
	w.Model.Normalize()
	return &w, nil
}

func buildStateKey(sessionID string) string {
	return fmt.Sprintf("state:%s", sessionID)
}

func buildRateKey(key string) string {
	return fmt.Sprintf("rate_limit:%s", key)
}
