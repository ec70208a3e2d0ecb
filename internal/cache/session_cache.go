package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"contractrisk/internal/session"
)

const maxUpdateAttempts = 5

// SessionCache is a session.Backend keeping each browser's state in Redis with a
// sliding expiry.
type SessionCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSessionCache(client *redisv9.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *SessionCache) Load(ctx context.Context, id string) (*session.State, error) {
	key := c.sessionKey(id)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}

	var state session.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshal cached session failed: %w: %w", session.ErrCorruptState, err)
	}
	if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis refresh session ttl failed: %w", err)
	}
	return &state, nil
}

func (c *SessionCache) Save(ctx context.Context, id string, state *session.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := c.client.Set(ctx, c.sessionKey(id), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

// Update is an optimistic read-modify-write under WATCH. A concurrent write to the
// same key aborts the transaction and fn is replayed on the newer value.
func (c *SessionCache) Update(ctx context.Context, id string, fn func(*session.State)) error {
	key := c.sessionKey(id)
	txf := func(tx *redisv9.Tx) error {
		state := &session.State{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redisv9.Nil):
		case err != nil:
			return fmt.Errorf("redis get session failed: %w", err)
		default:
			if err := json.Unmarshal(raw, state); err != nil {
				state = &session.State{}
			}
		}

		fn(state)

		var payload []byte
		if !state.Empty() {
			if payload, err = json.Marshal(state); err != nil {
				return fmt.Errorf("marshal session failed: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := c.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redisv9.TxFailedErr) {
			return fmt.Errorf("redis update session failed: %w", err)
		}
	}
	return fmt.Errorf("redis update session failed after %d attempts: %w", maxUpdateAttempts, redisv9.TxFailedErr)
}

func (c *SessionCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (c *SessionCache) sessionKey(id string) string {
	return fmt.Sprintf("contractrisk:session:%s", id)
}
