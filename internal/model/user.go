package model

import "time"

// User is a chat participant. Users are shared across channels, messages
// and reactions; entities reference them by id only.
type User struct {
	ID               string        `json:"id"`
	Name             string        `json:"name,omitempty"`
	Role             string        `json:"role,omitempty"`
	Online           bool          `json:"online,omitempty"`
	Banned           bool          `json:"banned,omitempty"`
	Invisible        bool          `json:"invisible,omitempty"`
	Mutes            []string      `json:"mutes,omitempty"`
	ChannelMutes     []string      `json:"channel_mutes,omitempty"`
	TotalUnreadCount int           `json:"total_unread_count,omitempty"`
	UnreadChannels   int           `json:"unread_channels,omitempty"`
	CreatedAt        time.Time     `json:"created_at,omitempty"`
	UpdatedAt        time.Time     `json:"updated_at,omitempty"`
	LastActive       time.Time     `json:"last_active,omitempty"`
	ExtraData        ExtraData     `json:"extra_data,omitempty"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Mutes = append([]string(nil), u.Mutes...)
	out.ChannelMutes = append([]string(nil), u.ChannelMutes...)
	out.ExtraData = u.ExtraData.Clone()
	return &out
}
