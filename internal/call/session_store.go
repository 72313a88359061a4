package call

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "call:state:"
	defaultSessionTTL = 24 * time.Hour
)

// SessionStore keeps call state in Redis so a conversation survives a
// process restart and can be shared across instances.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore creates a session store backed by Redis. ttl <= 0 falls
// back to 24 hours.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(callID string) string {
	return sessionKeyPrefix + callID
}

// Save persists the call state, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, state *State) error {
	if state == nil || state.CallID == "" {
		return fmt.Errorf("call state: call_id required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("call state: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(state.CallID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("call state: set %s: %w", state.CallID, err)
	}
	return nil
}

// Get loads the call state. A missing call yields (nil, nil).
func (s *SessionStore) Get(ctx context.Context, callID string) (*State, error) {
	data, err := s.rdb.Get(ctx, sessionKey(callID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("call state: get %s: %w", callID, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("call state: unmarshal %s: %w", callID, err)
	}
	return &state, nil
}

// Delete removes the call state.
func (s *SessionStore) Delete(ctx context.Context, callID string) error {
	if err := s.rdb.Del(ctx, sessionKey(callID)).Err(); err != nil {
		return fmt.Errorf("call state: delete %s: %w", callID, err)
	}
	return nil
}
