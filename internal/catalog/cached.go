package catalog

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// Cached wraps a Loader with a TTL cache so repeated reads (every allocation
// and every attempt start) avoid hitting the backing store.
type Cached struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	byID      map[int]domain.Question
	expiresAt time.Time
}

func NewCached(loader Loader, ttl time.Duration) *Cached {
	return &Cached{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Cached) List(ctx context.Context) ([]domain.Question, error) {
	questions, _, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}

func (c *Cached) ByID(ctx context.Context, id int) (domain.Question, error) {
	_, byID, err := c.load(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	if q, ok := byID[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (c *Cached) load(ctx context.Context) ([]domain.Question, map[int]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if c.questions != nil && c.expiresAt.After(now) {
		questions, byID := c.questions, c.byID
		c.mu.RUnlock()
		return questions, byID, nil
	}
	c.mu.RUnlock()

	_, err, _ := c.sf.Do("catalog", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.questions != nil && c.expiresAt.After(now) {
			c.mu.RUnlock()
			return nil, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[int]domain.Question, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}

		c.mu.Lock()
		c.questions = questions
		c.byID = byID
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.questions, c.byID, nil
}

func (c *Cached) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
