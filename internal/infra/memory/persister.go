// Package memory keeps the admin state and usage ledger blobs in process
// memory. Tests and throwaway runs use it in place of file or Redis
// storage.
package memory

import (
	"context"
	"sync"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// Persister implements store.Persister and alloc.LedgerStore without any
// durable backing.
type Persister struct {
	mu    sync.Mutex
	state *domain.AdminState
	usage map[string][]int
}

func NewPersister() *Persister {
	return &Persister{}
}

func (p *Persister) LoadState(_ context.Context) (domain.AdminState, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return domain.AdminState{}, false, nil
	}
	return p.state.Clone(), true, nil
}

func (p *Persister) SaveState(_ context.Context, state domain.AdminState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := state.Clone()
	p.state = &clone
	return nil
}

func (p *Persister) LoadUsage(_ context.Context) (map[string][]int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.usage == nil {
		return nil, false, nil
	}
	return cloneUsage(p.usage), true, nil
}

func (p *Persister) SaveUsage(_ context.Context, usage map[string][]int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = cloneUsage(usage)
	return nil
}

func cloneUsage(usage map[string][]int) map[string][]int {
	out := make(map[string][]int, len(usage))
	for key, ids := range usage {
		out[key] = append([]int(nil), ids...)
	}
	return out
}
