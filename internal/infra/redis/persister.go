// Package redis persists the admin state and usage ledger blobs as JSON
// strings in Redis. It serves deployments where several kiosk hosts should
// share one state; the file persister remains the single-host default.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

const (
	stateKey = "mptcquiz:admin-state"
	usageKey = "mptcquiz:question-usage"
)

// Persister implements store.Persister and alloc.LedgerStore on Redis.
type Persister struct {
	client *redis.Client
}

func NewPersister(client *redis.Client) *Persister {
	return &Persister{client: client}
}

func (p *Persister) LoadState(ctx context.Context) (domain.AdminState, bool, error) {
	var state domain.AdminState
	ok, err := p.get(ctx, stateKey, &state)
	return state, ok, err
}

func (p *Persister) SaveState(ctx context.Context, state domain.AdminState) error {
	return p.set(ctx, stateKey, state)
}

func (p *Persister) LoadUsage(ctx context.Context) (map[string][]int, bool, error) {
	var usage map[string][]int
	ok, err := p.get(ctx, usageKey, &usage)
	return usage, ok, err
}

func (p *Persister) SaveUsage(ctx context.Context, usage map[string][]int) error {
	return p.set(ctx, usageKey, usage)
}

func (p *Persister) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (p *Persister) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := p.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
