package sync

import (
	stdsync "sync"

	"github.com/driftchat/driftchat-go/internal/event"
)

// ChannelObserver receives the events of one channel while a UI surface is
// subscribed to it.
type ChannelObserver interface {
	HandleEvents(events []event.Event)
}

// QueryObserver receives every processed event so a channel-list query can
// decide whether channels enter or leave its result set.
type QueryObserver interface {
	HandleEvents(events []event.Event)
}

// MemberChecker is optionally implemented by channel observers that track
// membership; presence events are then forwarded only to channels
// containing the affected user.
type MemberChecker interface {
	HasMember(userID string) bool
}

// ObserverRegistry tracks the active channels and channel-list queries of
// a session.
type ObserverRegistry struct {
	mu       stdsync.RWMutex
	channels map[string]ChannelObserver
	queries  []QueryObserver
}

// NewObserverRegistry builds an empty registry.
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{channels: make(map[string]ChannelObserver)}
}

// RegisterChannel subscribes an observer to a channel's events, replacing
// any previous observer for that cid.
func (r *ObserverRegistry) RegisterChannel(cid string, obs ChannelObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[cid] = obs
}

// UnregisterChannel removes the observer for a cid.
func (r *ObserverRegistry) UnregisterChannel(cid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, cid)
}

// IsActiveChannel reports whether a channel has a live observer.
func (r *ObserverRegistry) IsActiveChannel(cid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[cid]
	return ok
}

// Channel returns the observer for a cid, or nil.
func (r *ObserverRegistry) Channel(cid string) ChannelObserver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[cid]
}

// ActiveChannels returns a snapshot of all channel observers.
func (r *ObserverRegistry) ActiveChannels() []ChannelObserver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChannelObserver, 0, len(r.channels))
	for _, obs := range r.channels {
		out = append(out, obs)
	}
	return out
}

// RegisterQuery subscribes a channel-list query observer.
func (r *ObserverRegistry) RegisterQuery(obs QueryObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, obs)
}

// UnregisterQuery removes a query observer.
func (r *ObserverRegistry) UnregisterQuery(obs QueryObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.queries {
		if q == obs {
			r.queries = append(r.queries[:i], r.queries[i+1:]...)
			return
		}
	}
}

// Queries returns a snapshot of all query observers.
func (r *ObserverRegistry) Queries() []QueryObserver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]QueryObserver(nil), r.queries...)
}
