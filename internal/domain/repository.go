package domain

// StateRepository is the persistence port for the mock backend. The core
// calls through this interface so the file-backed implementation can be
// swapped for a real database without touching business logic.
type StateRepository interface {
	// Load restores the last persisted aggregate. Returns (nil, nil) when no
	// snapshot exists yet.
	Load() (*StoreState, error)

	// Save persists the full aggregate. Called after every mutation.
	Save(state *StoreState) error

	// AppendAudit appends one entry to the write-only audit trail. The audit
	// file is unbounded, unlike the capped in-memory log list.
	AppendAudit(entry LogEntry) error
}
