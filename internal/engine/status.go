package engine

import "time"

// SyncStatus tells whether the in-memory ledger has reached the repository.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncPending SyncStatus = "pending"
	SyncSaving  SyncStatus = "saving"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// Status is transient service state. It is never part of the persisted
// snapshot.
type Status struct {
	Loading     bool       `json:"loading"`
	SyncStatus  SyncStatus `json:"syncStatus"`
	LastError   string     `json:"lastError,omitempty"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
	// Version counts committed changes since start. A batch counts once.
	Version uint64 `json:"version"`
}
