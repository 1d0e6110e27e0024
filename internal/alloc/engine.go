package alloc

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/catalog"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// LedgerStore persists the usage ledger blob: identity key to the ordered
// question ids already served. Implementations live under internal/infra.
type LedgerStore interface {
	// LoadUsage returns the stored ledger, or ok=false when none exists yet.
	LoadUsage(ctx context.Context) (map[string][]int, bool, error)
	SaveUsage(ctx context.Context, usage map[string][]int) error
}

// Engine selects personalized question sets: no question repeats for an
// identity until the unseen remainder cannot cover a draw, at which point
// that identity's history resets and the full catalog becomes eligible
// again. The engine exclusively owns the usage ledger.
type Engine struct {
	catalog catalog.Catalog
	ledger  LedgerStore
	log     zerolog.Logger

	mu     sync.Mutex
	usage  map[string][]int
	loaded bool
}

func NewEngine(cat catalog.Catalog, ledger LedgerStore, log zerolog.Logger) *Engine {
	return &Engine{
		catalog: cat,
		ledger:  ledger,
		log:     log.With().Str("component", "alloc").Logger(),
		usage:   make(map[string][]int),
	}
}

// Allocate draws count questions for the given identity and records the
// draw in the ledger. When count exceeds the catalog size the draw degrades
// to the whole catalog rather than failing.
func (e *Engine) Allocate(ctx context.Context, name, phone string, count int) ([]domain.Question, error) {
	questions, err := e.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked(ctx)

	key := domain.IdentityKey(name, phone)
	used := e.usage[key]
	usedSet := make(map[int]struct{}, len(used))
	for _, id := range used {
		usedSet[id] = struct{}{}
	}

	available := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, seen := usedSet[q.ID]; !seen {
			available = append(available, q)
		}
	}

	reset := len(available) < count
	pool := available
	if reset {
		pool = questions
	}

	shuffled := seededShuffle(pool, Seed(name, phone, len(usedSet)))
	if count > len(shuffled) {
		count = len(shuffled)
	}
	selected := shuffled[:count]

	selectedIDs := make([]int, len(selected))
	for i, q := range selected {
		selectedIDs[i] = q.ID
	}

	var entry []int
	if reset {
		entry = selectedIDs
	} else {
		entry = append(append([]int(nil), used...), selectedIDs...)
	}
	// cap at catalog size, keeping the most recent draws, so the pool rotates
	if len(entry) > len(questions) {
		entry = entry[len(entry)-len(questions):]
	}
	e.usage[key] = entry

	if err := e.ledger.SaveUsage(ctx, e.usage); err != nil {
		e.log.Error().Err(err).Str("identity", key).Msg("persist usage ledger")
	}
	return selected, nil
}

// Usage returns the recorded question ids for an identity, for inspection.
func (e *Engine) Usage(ctx context.Context, name, phone string) []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked(ctx)
	return append([]int(nil), e.usage[domain.IdentityKey(name, phone)]...)
}

func (e *Engine) loadLocked(ctx context.Context) {
	if e.loaded {
		return
	}
	e.loaded = true
	usage, ok, err := e.ledger.LoadUsage(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("load usage ledger")
		return
	}
	if ok {
		e.usage = usage
	}
}

func seededShuffle(questions []domain.Question, seed int64) []domain.Question {
	shuffled := append([]domain.Question(nil), questions...)
	rnd := newLCG(seed)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(rnd.next() * float64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
