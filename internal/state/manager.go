// Package state persists per-user client state (role info, wizards, pending edit queues)
// so it survives page navigation. A Manager is created once at startup and injected.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "state:"

// Manager reads and writes named JSON documents in Redis.
type Manager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewManager constructs a Manager. A zero ttl keeps entries until reset.
func NewManager(client *redis.Client, ttl time.Duration) *Manager {
	return &Manager{client: client, ttl: ttl}
}

// Load decodes the named document into dest and reports whether it existed.
func (m *Manager) Load(ctx context.Context, name string, dest any) (bool, error) {
	if m == nil || m.client == nil {
		return false, errors.New("state: manager not initialised")
	}
	payload, err := m.client.Get(ctx, keyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: load %s: %w", name, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", name, err)
	}
	return true, nil
}

// Save stores value under name, refreshing its TTL.
func (m *Manager) Save(ctx context.Context, name string, value any) error {
	if m == nil || m.client == nil {
		return errors.New("state: manager not initialised")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", name, err)
	}
	if err := m.client.Set(ctx, keyPrefix+name, payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("state: save %s: %w", name, err)
	}
	return nil
}

// Reset removes the named document.
func (m *Manager) Reset(ctx context.Context, name string) error {
	return m.ResetAll(ctx, name)
}

// ResetAll removes every named document in one round trip.
func (m *Manager) ResetAll(ctx context.Context, names ...string) error {
	if m == nil || m.client == nil {
		return errors.New("state: manager not initialised")
	}
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = keyPrefix + name
	}
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("state: reset: %w", err)
	}
	return nil
}
