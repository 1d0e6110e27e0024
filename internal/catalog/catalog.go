package catalog

import (
	"context"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// Catalog exposes the fixed universe of question records. Consumers treat it
// as read-only; no method mutates catalog content.
type Catalog interface {
	List(ctx context.Context) ([]domain.Question, error)
	ByID(ctx context.Context, id int) (domain.Question, error)
}

// Loader fetches catalog content from a backing store (file, Postgres, etc).
type Loader interface {
	LoadCatalog(ctx context.Context) ([]domain.Question, error)
}

// Static is a catalog backed by an in-memory slice (useful for tests/demos).
type Static struct {
	questions []domain.Question
	byID      map[int]domain.Question
}

func NewStatic(questions []domain.Question) *Static {
	byID := make(map[int]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &Static{questions: questions, byID: byID}
}

func (c *Static) List(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out, nil
}

func (c *Static) ByID(_ context.Context, id int) (domain.Question, error) {
	if q, ok := c.byID[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// LoadCatalog lets a Static double as a Loader for the cached catalog.
func (c *Static) LoadCatalog(ctx context.Context) ([]domain.Question, error) {
	return c.List(ctx)
}
