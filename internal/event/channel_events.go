package event

import "github.com/driftchat/driftchat-go/internal/model"

// MemberAdded signals a user joined a channel.
type MemberAdded struct {
	Base
	CID    string        `json:"cid"`
	User   *model.User   `json:"user,omitempty"`
	Member *model.Member `json:"member"`
}

func (e *MemberAdded) Cid() string { return e.CID }
func (e *MemberAdded) EventUser() *model.User { return e.User }

// MemberUpdated signals a membership change (role, invite state).
type MemberUpdated struct {
	Base
	CID    string        `json:"cid"`
	User   *model.User   `json:"user,omitempty"`
	Member *model.Member `json:"member"`
}

func (e *MemberUpdated) Cid() string { return e.CID }
func (e *MemberUpdated) EventUser() *model.User { return e.User }

// MemberRemoved signals a user left or was removed from a channel.
type MemberRemoved struct {
	Base
	CID  string      `json:"cid"`
	User *model.User `json:"user"`
}

func (e *MemberRemoved) Cid() string { return e.CID }
func (e *MemberRemoved) EventUser() *model.User { return e.User }

// NotificationAddedToChannel signals the current user was added to a
// channel; carries the full channel.
type NotificationAddedToChannel struct {
	Base
	CID     string         `json:"cid"`
	Channel *model.Channel `json:"channel"`
}

func (e *NotificationAddedToChannel) Cid() string { return e.CID }

// NotificationRemovedFromChannel signals the current user was removed.
type NotificationRemovedFromChannel struct {
	Base
	CID  string      `json:"cid"`
	User *model.User `json:"user,omitempty"`
}

func (e *NotificationRemovedFromChannel) Cid() string { return e.CID }

// NotificationInvited signals an invite was created for a user.
type NotificationInvited struct {
	Base
	CID    string        `json:"cid"`
	User   *model.User   `json:"user"`
	Member *model.Member `json:"member"`
}

func (e *NotificationInvited) Cid() string { return e.CID }
func (e *NotificationInvited) EventUser() *model.User { return e.User }

// NotificationInviteAccepted signals an invite was accepted.
type NotificationInviteAccepted struct {
	Base
	CID     string         `json:"cid"`
	User    *model.User    `json:"user"`
	Member  *model.Member  `json:"member"`
	Channel *model.Channel `json:"channel"`
}

func (e *NotificationInviteAccepted) Cid() string { return e.CID }
func (e *NotificationInviteAccepted) EventUser() *model.User { return e.User }

// NotificationInviteRejected signals an invite was rejected.
type NotificationInviteRejected struct {
	Base
	CID     string         `json:"cid"`
	User    *model.User    `json:"user"`
	Member  *model.Member  `json:"member"`
	Channel *model.Channel `json:"channel"`
}

func (e *NotificationInviteRejected) Cid() string { return e.CID }
func (e *NotificationInviteRejected) EventUser() *model.User { return e.User }

// ChannelUpdated signals channel metadata changed.
type ChannelUpdated struct {
	Base
	CID     string         `json:"cid"`
	User    *model.User    `json:"user,omitempty"`
	Channel *model.Channel `json:"channel"`
}

func (e *ChannelUpdated) Cid() string { return e.CID }
func (e *ChannelUpdated) EventUser() *model.User { return e.User }

// ChannelDeleted signals a channel was deleted server-side.
type ChannelDeleted struct {
	Base
	CID     string         `json:"cid"`
	User    *model.User    `json:"user,omitempty"`
	Channel *model.Channel `json:"channel"`
}

func (e *ChannelDeleted) Cid() string { return e.CID }
func (e *ChannelDeleted) EventUser() *model.User { return e.User }

// ChannelHidden signals the channel was hidden for the current user.
// ClearHistory requests that messages before CreatedAt stay hidden.
type ChannelHidden struct {
	Base
	CID          string      `json:"cid"`
	User         *model.User `json:"user,omitempty"`
	ClearHistory bool        `json:"clear_history,omitempty"`
}

func (e *ChannelHidden) Cid() string { return e.CID }
func (e *ChannelHidden) EventUser() *model.User { return e.User }

// ChannelVisible signals the channel became visible again.
type ChannelVisible struct {
	Base
	CID  string      `json:"cid"`
	User *model.User `json:"user,omitempty"`
}

func (e *ChannelVisible) Cid() string { return e.CID }
func (e *ChannelVisible) EventUser() *model.User { return e.User }

// ChannelTruncated signals message history was truncated at CreatedAt.
type ChannelTruncated struct {
	Base
	CID     string         `json:"cid"`
	User    *model.User    `json:"user,omitempty"`
	Channel *model.Channel `json:"channel"`
}

func (e *ChannelTruncated) Cid() string { return e.CID }
func (e *ChannelTruncated) EventUser() *model.User { return e.User }

// NotificationChannelDeleted is the notification counterpart of
// ChannelDeleted.
type NotificationChannelDeleted struct {
	Base
	CID     string         `json:"cid"`
	Channel *model.Channel `json:"channel"`
}

func (e *NotificationChannelDeleted) Cid() string { return e.CID }

// NotificationChannelTruncated is the notification counterpart of
// ChannelTruncated.
type NotificationChannelTruncated struct {
	Base
	CID     string         `json:"cid"`
	Channel *model.Channel `json:"channel"`
}

func (e *NotificationChannelTruncated) Cid() string { return e.CID }

// NotificationChannelMutesUpdated carries the own user with refreshed
// channel mutes.
type NotificationChannelMutesUpdated struct {
	Base
	OwnUser *model.User `json:"me"`
}

func (e *NotificationChannelMutesUpdated) Me() *model.User { return e.OwnUser }

// TypingStart signals a user started typing in a channel.
type TypingStart struct {
	Base
	CID      string      `json:"cid"`
	User     *model.User `json:"user"`
	ParentID string      `json:"parent_id,omitempty"`
}

func (e *TypingStart) Cid() string { return e.CID }
func (e *TypingStart) EventUser() *model.User { return e.User }

// TypingStop signals a user stopped typing in a channel.
type TypingStop struct {
	Base
	CID      string      `json:"cid"`
	User     *model.User `json:"user"`
	ParentID string      `json:"parent_id,omitempty"`
}

func (e *TypingStop) Cid() string { return e.CID }
func (e *TypingStop) EventUser() *model.User { return e.User }
