package model

// SyncStatus tracks how far a locally mutated entity has progressed
// towards being confirmed by the backend.
type SyncStatus string

const (
	// SyncNeeded marks an entity mutated while offline or after a
	// recoverable failure. Only SyncNeeded entities are eligible for
	// background retry.
	SyncNeeded SyncStatus = "sync_needed"
	// SyncInProgress marks an entity whose network call is in flight.
	SyncInProgress SyncStatus = "in_progress"
	// SyncCompleted marks an entity confirmed by the backend.
	SyncCompleted SyncStatus = "completed"
	// SyncFailedPermanently marks an entity rejected by the backend with a
	// non-recoverable error. It is never retried.
	SyncFailedPermanently SyncStatus = "failed_permanently"
)

// Valid reports whether s is one of the defined statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncNeeded, SyncInProgress, SyncCompleted, SyncFailedPermanently:
		return true
	}
	return false
}
