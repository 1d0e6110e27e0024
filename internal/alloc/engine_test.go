package alloc_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/alloc"
	"github.com/ProCoderAkhil/mptcquiz/internal/catalog"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
	"github.com/ProCoderAkhil/mptcquiz/internal/infra/memory"
)

func TestAllocateReturnsDistinctQuestions(t *testing.T) {
	engine := newTestEngine(10)

	selected, err := engine.Allocate(context.Background(), "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(selected) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(selected))
	}
	seen := make(map[int]struct{})
	for _, q := range selected {
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("duplicate question %d in draw", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

func TestNoRepeatUntilExhaustion(t *testing.T) {
	engine := newTestEngine(10)
	ctx := context.Background()

	first, err := engine.Allocate(ctx, "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("first draw: %v", err)
	}
	second, err := engine.Allocate(ctx, "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("second draw: %v", err)
	}

	firstIDs := idSet(first)
	for _, q := range second {
		if _, seen := firstIDs[q.ID]; seen {
			t.Fatalf("question %d repeated before exhaustion", q.ID)
		}
	}

	// The two draws exhausted the catalog exactly; the third must reset and
	// still return a full set.
	third, err := engine.Allocate(ctx, "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("third draw: %v", err)
	}
	if len(third) != 5 {
		t.Fatalf("expected 5 questions after reset, got %d", len(third))
	}
}

func TestResetReplacesLedgerEntry(t *testing.T) {
	engine := newTestEngine(10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Allocate(ctx, "Alice", "9876543210", 5); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}
	third, err := engine.Allocate(ctx, "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("third draw: %v", err)
	}

	usage := engine.Usage(ctx, "Alice", "9876543210")
	if len(usage) != 5 {
		t.Fatalf("expected ledger reset to 5 ids, got %d", len(usage))
	}
	thirdIDs := idSet(third)
	for _, id := range usage {
		if _, ok := thirdIDs[id]; !ok {
			t.Fatalf("ledger id %d not part of the reset draw", id)
		}
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	first, err := newTestEngine(10).Allocate(context.Background(), "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	second, err := newTestEngine(10).Allocate(context.Background(), "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("draw diverged at %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}

func TestDistinctIdentitiesKeepSeparateHistory(t *testing.T) {
	engine := newTestEngine(10)
	ctx := context.Background()

	if _, err := engine.Allocate(ctx, "Alice", "9876543210", 5); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := engine.Usage(ctx, "Bob", "1112223333"); len(got) != 0 {
		t.Fatalf("expected empty history for Bob, got %v", got)
	}

	// Same identity through different formatting shares history.
	if got := engine.Usage(ctx, "  ALICE  ", "(987) 654-3210"); len(got) != 5 {
		t.Fatalf("expected shared history for normalized identity, got %v", got)
	}
}

func TestAllocateDegradesWhenCountExceedsCatalog(t *testing.T) {
	engine := newTestEngine(3)

	selected, err := engine.Allocate(context.Background(), "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("expected the whole catalog (3), got %d", len(selected))
	}
}

func TestLedgerCappedAtCatalogSize(t *testing.T) {
	engine := newTestEngine(10)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := engine.Allocate(ctx, "Alice", "9876543210", 3); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}
	if usage := engine.Usage(ctx, "Alice", "9876543210"); len(usage) > 10 {
		t.Fatalf("ledger grew past catalog size: %d", len(usage))
	}
}

func TestLedgerSurvivesReload(t *testing.T) {
	blobs := memory.NewPersister()
	cat := testCatalog(10)
	ctx := context.Background()

	first := alloc.NewEngine(cat, blobs, zerolog.Nop())
	drawn, err := first.Allocate(ctx, "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	// A fresh engine over the same ledger store must not repeat the draw.
	second := alloc.NewEngine(cat, blobs, zerolog.Nop())
	next, err := second.Allocate(ctx, "Alice", "9876543210", 5)
	if err != nil {
		t.Fatalf("allocate after reload: %v", err)
	}
	drawnIDs := idSet(drawn)
	for _, q := range next {
		if _, seen := drawnIDs[q.ID]; seen {
			t.Fatalf("question %d repeated after ledger reload", q.ID)
		}
	}
}

func TestSeedDependsOnUsageCount(t *testing.T) {
	a := alloc.Seed("Alice", "9876543210", 0)
	b := alloc.Seed("Alice", "9876543210", 5)
	if a == b {
		t.Fatalf("expected different seeds for different usage counts")
	}
	if a != alloc.Seed("Alice", "9876543210", 0) {
		t.Fatalf("seed is not stable")
	}
	if a < 0 {
		t.Fatalf("seed must be non-negative, got %d", a)
	}
}

func newTestEngine(catalogSize int) *alloc.Engine {
	return alloc.NewEngine(testCatalog(catalogSize), memory.NewPersister(), zerolog.Nop())
}

func testCatalog(n int) *catalog.Static {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:            i + 1,
			Category:      "General",
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: i % 4,
		}
	}
	return catalog.NewStatic(questions)
}

func idSet(questions []domain.Question) map[int]struct{} {
	out := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		out[q.ID] = struct{}{}
	}
	return out
}
