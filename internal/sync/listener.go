package sync

import (
	"errors"

	"github.com/driftchat/driftchat-go/internal/client"
	"github.com/driftchat/driftchat-go/internal/model"
)

// Every mutation flow follows the same three-phase contract:
//
//	OnXPrecondition  local-only validation, may short-circuit the call
//	OnXRequest       optimistic cache write before the network round trip
//	OnXResult        reconciliation of the cache with the server's answer
//
// Listeners never perform network calls themselves; the call site owns the
// ChatApi round trip and reports its outcome through OnXResult.

// ErrLocalOnlyDelete is returned by the delete-message precondition when
// the message must be removed locally without a network round trip.
var ErrLocalOnlyDelete = errors.New("message deleted locally only")

// ErrNoCurrentUser is returned by preconditions that need a session user
// before one was established.
var ErrNoCurrentUser = errors.New("no current user in session")

// requestStatus is the optimistic-write status: online mutations go
// straight to in-progress, offline ones wait for the background sync.
func requestStatus(state *GlobalState) model.SyncStatus {
	if state.Online() {
		return model.SyncInProgress
	}
	return model.SyncNeeded
}

// resultStatus classifies a round-trip outcome for the status machine.
func resultStatus(err error) model.SyncStatus {
	switch {
	case err == nil:
		return model.SyncCompleted
	case client.IsRecoverable(err):
		return model.SyncNeeded
	default:
		return model.SyncFailedPermanently
	}
}
