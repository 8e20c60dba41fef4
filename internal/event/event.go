package event

import (
	"time"

	"github.com/driftchat/driftchat-go/internal/model"
)

// Type identifies an event variant on the wire.
type Type string

const (
	TypeNewMessage             Type = "message.new"
	TypeMessageUpdated         Type = "message.updated"
	TypeMessageDeleted         Type = "message.deleted"
	TypeNotificationMessageNew Type = "notification.message_new"
	TypeReactionNew            Type = "reaction.new"
	TypeReactionUpdated        Type = "reaction.updated"
	TypeReactionDeleted        Type = "reaction.deleted"
	TypeMemberAdded            Type = "member.added"
	TypeMemberUpdated          Type = "member.updated"
	TypeMemberRemoved          Type = "member.removed"

	TypeNotificationAddedToChannel     Type = "notification.added_to_channel"
	TypeNotificationRemovedFromChannel Type = "notification.removed_from_channel"
	TypeNotificationInvited            Type = "notification.invited"
	TypeNotificationInviteAccepted     Type = "notification.invite_accepted"
	TypeNotificationInviteRejected     Type = "notification.invite_rejected"

	TypeChannelUpdated   Type = "channel.updated"
	TypeChannelDeleted   Type = "channel.deleted"
	TypeChannelHidden    Type = "channel.hidden"
	TypeChannelVisible   Type = "channel.visible"
	TypeChannelTruncated Type = "channel.truncated"

	TypeNotificationChannelDeleted      Type = "notification.channel_deleted"
	TypeNotificationChannelTruncated    Type = "notification.channel_truncated"
	TypeNotificationChannelMutesUpdated Type = "notification.channel_mutes_updated"
	TypeNotificationMutesUpdated        Type = "notification.mutes_updated"

	TypeMessageRead          Type = "message.read"
	TypeNotificationMarkRead Type = "notification.mark_read"
	TypeMarkAllRead          Type = "notification.mark_all_read"

	TypeUserUpdated         Type = "user.updated"
	TypeUserDeleted         Type = "user.deleted"
	TypeUserBanned          Type = "user.banned"
	TypeUserUnbanned        Type = "user.unbanned"
	TypeUserPresenceChanged Type = "user.presence.changed"
	TypeUserWatchingStart   Type = "user.watching.start"
	TypeUserWatchingStop    Type = "user.watching.stop"
	TypeTypingStart         Type = "typing.start"
	TypeTypingStop          Type = "typing.stop"

	TypeConnected    Type = "connection.connected"
	TypeConnecting   Type = "connection.connecting"
	TypeDisconnected Type = "connection.disconnected"
	TypeHealth       Type = "health.check"
	TypeError        Type = "error"
	TypeUnknown      Type = "unknown"
)

// Event is a typed, timestamped fact delivered by the backend. The variant
// set is closed: only types in this package implement it.
type Event interface {
	EventType() Type
	EventCreatedAt() time.Time

	sealedEvent()
}

// CidEvent is implemented by events correlated to a single channel.
type CidEvent interface {
	Event
	Cid() string
}

// UserEvent is implemented by events carrying the acting user.
type UserEvent interface {
	Event
	EventUser() *model.User
}

// OwnUserEvent is implemented by events carrying the authoritative state of
// the connection's own user.
type OwnUserEvent interface {
	Event
	Me() *model.User
}

// Base holds the fields shared by every event variant.
type Base struct {
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType implements Event.
func (b Base) EventType() Type { return b.Type }

// EventCreatedAt implements Event.
func (b Base) EventCreatedAt() time.Time { return b.CreatedAt }

func (Base) sealedEvent() {}
