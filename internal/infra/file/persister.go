// Package file persists the admin state and usage ledger blobs as JSON
// files under a local data directory. This is the default durable storage:
// a single-host kiosk install keeps its state across restarts without any
// external service.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

const (
	stateFile = "admin-state.json"
	usageFile = "question-usage.json"
)

// Persister implements store.Persister and alloc.LedgerStore on local files.
type Persister struct {
	statePath string
	usagePath string
}

func NewPersister(dir string) (*Persister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Persister{
		statePath: filepath.Join(dir, stateFile),
		usagePath: filepath.Join(dir, usageFile),
	}, nil
}

func (p *Persister) LoadState(_ context.Context) (domain.AdminState, bool, error) {
	var state domain.AdminState
	ok, err := readJSON(p.statePath, &state)
	return state, ok, err
}

func (p *Persister) SaveState(_ context.Context, state domain.AdminState) error {
	return writeJSON(p.statePath, state)
}

func (p *Persister) LoadUsage(_ context.Context) (map[string][]int, bool, error) {
	var usage map[string][]int
	ok, err := readJSON(p.usagePath, &usage)
	return usage, ok, err
}

func (p *Persister) SaveUsage(_ context.Context, usage map[string][]int) error {
	return writeJSON(p.usagePath, usage)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// writeJSON goes through a temp file and rename so a crash mid-write never
// leaves a truncated blob behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
