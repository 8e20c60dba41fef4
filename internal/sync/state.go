package sync

import (
	"errors"
	"fmt"
	stdsync "sync"

	"github.com/driftchat/driftchat-go/internal/model"
)

// ConnectionState describes the socket's lifecycle as seen by the core.
type ConnectionState int

const (
	// ConnectionOffline means no socket is established.
	ConnectionOffline ConnectionState = iota
	// ConnectionConnecting means a connection attempt is in flight.
	ConnectionConnecting
	// ConnectionOnline means events are flowing.
	ConnectionOnline
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionConnecting:
		return "connecting"
	case ConnectionOnline:
		return "online"
	default:
		return "offline"
	}
}

// ErrUserMismatch is returned when an own-user event carries a different
// user than the one this state was initialized for.
var ErrUserMismatch = errors.New("own-user event for a different user; create a new session to switch users")

// GlobalState is the session-wide mutable state shared by the event
// handler and the listeners. It is constructed once per session and passed
// explicitly; there is no ambient singleton.
type GlobalState struct {
	mu stdsync.RWMutex

	connection         ConnectionState
	initialized        bool
	currentUser        *model.User
	totalUnreadCount   int
	channelUnreadCount int
	banned             bool
}

// NewGlobalState builds state for the given session user. user may be nil
// until the first Connected event arrives.
func NewGlobalState(user *model.User) *GlobalState {
	return &GlobalState{currentUser: user.Clone()}
}

// ConnectionState returns the current connection state.
func (g *GlobalState) ConnectionState() ConnectionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connection
}

// SetConnectionState records a connection transition.
func (g *GlobalState) SetConnectionState(state ConnectionState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connection = state
}

// Online reports whether the session is connected.
func (g *GlobalState) Online() bool {
	return g.ConnectionState() == ConnectionOnline
}

// Initialized reports whether the first Connected event was observed.
func (g *GlobalState) Initialized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.initialized
}

// SetInitialized marks the session initialized.
func (g *GlobalState) SetInitialized() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialized = true
}

// CurrentUser returns a copy of the session user, or nil.
func (g *GlobalState) CurrentUser() *model.User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentUser.Clone()
}

// CurrentUserID returns the session user's id, or "".
func (g *GlobalState) CurrentUserID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.currentUser == nil {
		return ""
	}
	return g.currentUser.ID
}

// SetCurrentUser replaces the session user from an authoritative own-user
// payload. A mismatched id is rejected: events about a different user must
// never rebind the session.
func (g *GlobalState) SetCurrentUser(me *model.User) error {
	if me == nil || me.ID == "" {
		return fmt.Errorf("set current user: missing user id")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.currentUser != nil && g.currentUser.ID != me.ID {
		return fmt.Errorf("%w: have %q, got %q", ErrUserMismatch, g.currentUser.ID, me.ID)
	}
	g.currentUser = me.Clone()
	g.totalUnreadCount = me.TotalUnreadCount
	g.channelUnreadCount = me.UnreadChannels
	g.banned = me.Banned
	return nil
}

// UnreadCounts returns the session-wide unread counters.
func (g *GlobalState) UnreadCounts() (total, channels int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.totalUnreadCount, g.channelUnreadCount
}

// SetUnreadCounts updates the session-wide unread counters.
func (g *GlobalState) SetUnreadCounts(total, channels int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.totalUnreadCount = total
	g.channelUnreadCount = channels
}

// Banned reports whether the session user is banned.
func (g *GlobalState) Banned() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.banned
}
