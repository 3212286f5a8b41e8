package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// StateStoreAdapter implements StateStore using the file system
type StateStoreAdapter struct {
	statePath string
}

// NewStateStoreAdapter creates a new StateStoreAdapter
func NewStateStoreAdapter(cfg *config.RuntimeConfig) *StateStoreAdapter {
	return &StateStoreAdapter{
		statePath: filepath.Join(cfg.DataDir, "state.json"),
	}
}

// Path returns the state file location.
func (s *StateStoreAdapter) Path() string {
	return s.statePath
}

const lockRetryDelay = 50 * time.Millisecond

// Lock takes the exclusive lock guarding the state file across processes,
// waiting until ctx is done. Hold it from Load through the last Save of one
// invocation; the returned func releases it.
func (s *StateStoreAdapter) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	fl := flock.New(s.statePath + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock state file %s: %w", s.statePath, err)
	}
	if !locked {
		return nil, fmt.Errorf("state file %s is locked by another process", s.statePath)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Load reads the governance state from disk. Returns a fresh state if the
// file does not exist.
func (s *StateStoreAdapter) Load(ctx context.Context) (*models.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewState(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if state.Version > models.StateVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", state.Version, models.StateVersion)
	}
	state.EnsureMaps()

	return &state, nil
}

// Save writes the state to disk, creating the directory if needed. The
// file is replaced through a rename so a crash never leaves it truncated.
func (s *StateStoreAdapter) Save(ctx context.Context, state *models.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.statePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.statePath); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Delete removes the state file from disk.
func (s *StateStoreAdapter) Delete(_ context.Context) error {
	err := os.Remove(s.statePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// Ensure StateStoreAdapter implements StateStore
var _ usecase.StateStore = (*StateStoreAdapter)(nil)
