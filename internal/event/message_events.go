package event

import "github.com/driftchat/driftchat-go/internal/model"

// NewMessage signals a message posted to a channel.
type NewMessage struct {
	Base
	CID              string         `json:"cid"`
	User             *model.User    `json:"user,omitempty"`
	Message          *model.Message `json:"message"`
	WatcherCount     int            `json:"watcher_count,omitempty"`
	TotalUnreadCount int            `json:"total_unread_count,omitempty"`
	UnreadChannels   int            `json:"unread_channels,omitempty"`
}

func (e *NewMessage) Cid() string { return e.CID }
func (e *NewMessage) EventUser() *model.User { return e.User }

// MessageUpdated signals an edit to an existing message.
type MessageUpdated struct {
	Base
	CID     string         `json:"cid"`
	User    *model.User    `json:"user,omitempty"`
	Message *model.Message `json:"message"`
}

func (e *MessageUpdated) Cid() string { return e.CID }
func (e *MessageUpdated) EventUser() *model.User { return e.User }

// MessageDeleted signals a soft delete, or a hard delete when HardDelete
// is set.
type MessageDeleted struct {
	Base
	CID        string         `json:"cid"`
	User       *model.User    `json:"user,omitempty"`
	Message    *model.Message `json:"message"`
	HardDelete bool           `json:"hard_delete,omitempty"`
}

func (e *MessageDeleted) Cid() string { return e.CID }
func (e *MessageDeleted) EventUser() *model.User { return e.User }

// NotificationMessageNew signals a message in a channel the user is not
// watching; it carries the full channel so the cache can be seeded.
type NotificationMessageNew struct {
	Base
	CID              string         `json:"cid"`
	Channel          *model.Channel `json:"channel"`
	Message          *model.Message `json:"message"`
	TotalUnreadCount int            `json:"total_unread_count,omitempty"`
	UnreadChannels   int            `json:"unread_channels,omitempty"`
}

func (e *NotificationMessageNew) Cid() string { return e.CID }

// ReactionNew signals a reaction added to a message.
type ReactionNew struct {
	Base
	CID      string          `json:"cid"`
	User     *model.User     `json:"user,omitempty"`
	Message  *model.Message  `json:"message"`
	Reaction *model.Reaction `json:"reaction"`
}

func (e *ReactionNew) Cid() string { return e.CID }
func (e *ReactionNew) EventUser() *model.User { return e.User }

// ReactionUpdated signals a reaction score/type update.
type ReactionUpdated struct {
	Base
	CID      string          `json:"cid"`
	User     *model.User     `json:"user,omitempty"`
	Message  *model.Message  `json:"message"`
	Reaction *model.Reaction `json:"reaction"`
}

func (e *ReactionUpdated) Cid() string { return e.CID }
func (e *ReactionUpdated) EventUser() *model.User { return e.User }

// ReactionDeleted signals a reaction removed from a message.
type ReactionDeleted struct {
	Base
	CID      string          `json:"cid"`
	User     *model.User     `json:"user,omitempty"`
	Message  *model.Message  `json:"message"`
	Reaction *model.Reaction `json:"reaction"`
}

func (e *ReactionDeleted) Cid() string { return e.CID }
func (e *ReactionDeleted) EventUser() *model.User { return e.User }

// MessageRead signals a user read a channel up to CreatedAt.
type MessageRead struct {
	Base
	CID  string      `json:"cid"`
	User *model.User `json:"user"`
}

func (e *MessageRead) Cid() string { return e.CID }
func (e *MessageRead) EventUser() *model.User { return e.User }

// NotificationMarkRead is the notification counterpart of MessageRead,
// enriched with unread counts.
type NotificationMarkRead struct {
	Base
	CID              string      `json:"cid"`
	User             *model.User `json:"user"`
	TotalUnreadCount int         `json:"total_unread_count,omitempty"`
	UnreadChannels   int         `json:"unread_channels,omitempty"`
}

func (e *NotificationMarkRead) Cid() string { return e.CID }
func (e *NotificationMarkRead) EventUser() *model.User { return e.User }

// MarkAllRead signals every channel was marked read for the user.
type MarkAllRead struct {
	Base
	User             *model.User `json:"user"`
	TotalUnreadCount int         `json:"total_unread_count,omitempty"`
	UnreadChannels   int         `json:"unread_channels,omitempty"`
}

func (e *MarkAllRead) EventUser() *model.User { return e.User }
