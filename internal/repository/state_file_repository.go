// Package repository provides the file-backed persistence implementation for
// the mock backend: a JSON snapshot of the full aggregate plus an append-only
// newline-delimited JSON audit trail.
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rtlab-dashboard/internal/domain"
)

// StateFileRepository implements domain.StateRepository on the local
// filesystem. Snapshot writes go through a temp file and rename so a crash
// mid-write never corrupts the last good snapshot.
type StateFileRepository struct {
	mu        sync.Mutex
	statePath string
	auditPath string
}

// NewStateFileRepository creates the repository and its parent directories.
func NewStateFileRepository(statePath, auditPath string) (*StateFileRepository, error) {
	for _, p := range []string{statePath, auditPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
			}
		}
	}
	return &StateFileRepository{statePath: statePath, auditPath: auditPath}, nil
}

// Load restores the last snapshot, or (nil, nil) when none exists yet.
func (r *StateFileRepository) Load() (*domain.StoreState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.statePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", r.statePath, err)
	}

	var state domain.StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", r.statePath, err)
	}
	return &state, nil
}

// Save writes the full aggregate as the new snapshot.
func (r *StateFileRepository) Save(state *domain.StoreState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := r.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, r.statePath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// AppendAudit appends one NDJSON line to the audit trail. The trail is
// write-only and unbounded, unlike the capped in-memory log list.
func (r *StateFileRepository) AppendAudit(entry domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	f, err := os.OpenFile(r.auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", r.auditPath, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}
