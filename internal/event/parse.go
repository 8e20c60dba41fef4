package event

import (
	"encoding/json"
	"fmt"
	"sort"
)

// registry maps wire types to constructors. Parsing an unregistered type
// yields Unknown rather than an error.
var registry = map[Type]func() Event{
	TypeNewMessage:             func() Event { return &NewMessage{} },
	TypeMessageUpdated:         func() Event { return &MessageUpdated{} },
	TypeMessageDeleted:         func() Event { return &MessageDeleted{} },
	TypeNotificationMessageNew: func() Event { return &NotificationMessageNew{} },
	TypeReactionNew:            func() Event { return &ReactionNew{} },
	TypeReactionUpdated:        func() Event { return &ReactionUpdated{} },
	TypeReactionDeleted:        func() Event { return &ReactionDeleted{} },
	TypeMemberAdded:            func() Event { return &MemberAdded{} },
	TypeMemberUpdated:          func() Event { return &MemberUpdated{} },
	TypeMemberRemoved:          func() Event { return &MemberRemoved{} },

	TypeNotificationAddedToChannel:     func() Event { return &NotificationAddedToChannel{} },
	TypeNotificationRemovedFromChannel: func() Event { return &NotificationRemovedFromChannel{} },
	TypeNotificationInvited:            func() Event { return &NotificationInvited{} },
	TypeNotificationInviteAccepted:     func() Event { return &NotificationInviteAccepted{} },
	TypeNotificationInviteRejected:     func() Event { return &NotificationInviteRejected{} },

	TypeChannelUpdated:   func() Event { return &ChannelUpdated{} },
	TypeChannelDeleted:   func() Event { return &ChannelDeleted{} },
	TypeChannelHidden:    func() Event { return &ChannelHidden{} },
	TypeChannelVisible:   func() Event { return &ChannelVisible{} },
	TypeChannelTruncated: func() Event { return &ChannelTruncated{} },

	TypeNotificationChannelDeleted:      func() Event { return &NotificationChannelDeleted{} },
	TypeNotificationChannelTruncated:    func() Event { return &NotificationChannelTruncated{} },
	TypeNotificationChannelMutesUpdated: func() Event { return &NotificationChannelMutesUpdated{} },
	TypeNotificationMutesUpdated:        func() Event { return &NotificationMutesUpdated{} },

	TypeMessageRead:          func() Event { return &MessageRead{} },
	TypeNotificationMarkRead: func() Event { return &NotificationMarkRead{} },
	TypeMarkAllRead:          func() Event { return &MarkAllRead{} },
	TypeUserUpdated:          func() Event { return &UserUpdated{} },
	TypeUserDeleted:          func() Event { return &UserDeleted{} },
	TypeUserBanned:           func() Event { return &UserBanned{} },
	TypeUserUnbanned:         func() Event { return &UserUnbanned{} },
	TypeUserPresenceChanged:  func() Event { return &UserPresenceChanged{} },
	TypeUserWatchingStart:    func() Event { return &UserWatchingStart{} },
	TypeUserWatchingStop:     func() Event { return &UserWatchingStop{} },
	TypeTypingStart:          func() Event { return &TypingStart{} },
	TypeTypingStop:           func() Event { return &TypingStop{} },
	TypeConnected:            func() Event { return &Connected{} },
	TypeConnecting:           func() Event { return &Connecting{} },
	TypeDisconnected:         func() Event { return &Disconnected{} },
	TypeHealth:               func() Event { return &Health{} },
	TypeError:                func() Event { return &Error{} },
}

// RegisteredTypes returns every known wire type, sorted, for
// exhaustiveness checks.
func RegisteredTypes() []Type {
	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// New instantiates an empty event of the given type, or nil when the type
// is not registered.
func New(t Type) Event {
	if ctor, ok := registry[t]; ok {
		return ctor()
	}
	return nil
}

// Parse decodes a single JSON-encoded event. Unrecognized types decode
// into Unknown so a batch never fails on a new backend variant.
func Parse(data []byte) (Event, error) {
	var head Base
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event header: %w", err)
	}

	ctor, ok := registry[head.Type]
	if !ok {
		return &Unknown{Base: head, Raw: append([]byte(nil), data...)}, nil
	}

	ev := ctor()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Type, err)
	}
	return ev, nil
}

// ParseBatch decodes either a JSON array of events or a stream wrapper
// {"events": [...]}.
func ParseBatch(data []byte) ([]Event, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		var wrapper struct {
			Events []json.RawMessage `json:"events"`
		}
		if wrapErr := json.Unmarshal(data, &wrapper); wrapErr != nil {
			return nil, fmt.Errorf("decode event batch: %w", err)
		}
		raws = wrapper.Events
	}

	events := make([]Event, 0, len(raws))
	for _, raw := range raws {
		ev, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Marshal encodes an event for the journal or test fixtures.
func Marshal(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// SortStable orders events by CreatedAt, preserving input order for equal
// timestamps. Ties between events touching the same entity therefore
// resolve deterministically to arrival order.
func SortStable(events []Event) []Event {
	out := append([]Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EventCreatedAt().Before(out[j].EventCreatedAt())
	})
	return out
}
