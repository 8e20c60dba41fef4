package event

import "github.com/driftchat/driftchat-go/internal/model"

// Connected signals the socket is established; carries the authoritative
// own-user snapshot and the server-assigned connection id.
type Connected struct {
	Base
	OwnUser      *model.User `json:"me"`
	ConnectionID string      `json:"connection_id,omitempty"`
}

func (e *Connected) Me() *model.User { return e.OwnUser }

// Connecting signals a connection attempt is in progress.
type Connecting struct {
	Base
}

// Disconnected signals the socket dropped.
type Disconnected struct {
	Base
	Reason string `json:"reason,omitempty"`
}

// Health is the periodic keep-alive; it also triggers retry of entities
// awaiting sync.
type Health struct {
	Base
	ConnectionID string `json:"connection_id,omitempty"`
}

// Error carries a server-side error notification.
type Error struct {
	Base
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Unknown preserves an unrecognized event type so processing never fails
// on new backend variants.
type Unknown struct {
	Base
	Raw []byte `json:"-"`
}
