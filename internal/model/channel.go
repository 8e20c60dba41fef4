package model

import "time"

// Member is a user's membership in a channel.
type Member struct {
	User        *User     `json:"user"`
	ChannelRole string    `json:"channel_role,omitempty"`
	Banned      bool      `json:"banned,omitempty"`
	Invited     bool      `json:"invited,omitempty"`
	InviteAccepted bool   `json:"invite_accepted,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Clone returns a deep copy of the member.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	out := *m
	out.User = m.User.Clone()
	return &out
}

// ChannelRead is a user's read state in a channel.
type ChannelRead struct {
	UserID         string    `json:"user_id"`
	LastRead       time.Time `json:"last_read"`
	UnreadMessages int       `json:"unread_messages,omitempty"`
}

// Channel is a conversation container identified by cid ("{type}:{id}").
type Channel struct {
	Type                 string                  `json:"type"`
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	CreatedByID          string                  `json:"created_by_id,omitempty"`
	Members              map[string]*Member      `json:"members,omitempty"`
	Reads                map[string]*ChannelRead `json:"reads,omitempty"`
	Hidden               bool                    `json:"hidden,omitempty"`
	HiddenMessagesBefore *time.Time              `json:"hidden_messages_before,omitempty"`
	Frozen               bool                    `json:"frozen,omitempty"`
	Muted                bool                    `json:"muted,omitempty"`
	MemberCount          int                     `json:"member_count,omitempty"`
	LastMessageAt        time.Time               `json:"last_message_at,omitempty"`
	CreatedAt            time.Time               `json:"created_at,omitempty"`
	UpdatedAt            time.Time               `json:"updated_at,omitempty"`
	DeletedAt            *time.Time              `json:"deleted_at,omitempty"`
	ExtraData            ExtraData               `json:"extra_data,omitempty"`
	SyncStatus           SyncStatus              `json:"sync_status,omitempty"`
}

// CID returns the composite channel identifier.
func (c *Channel) CID() string {
	return Cid(c.Type, c.ID)
}

// Clone returns a deep copy of the channel. Event transformations operate
// on clones so a staged value never aliases the repository's copy.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	out := *c
	if c.Members != nil {
		out.Members = make(map[string]*Member, len(c.Members))
		for id, m := range c.Members {
			out.Members[id] = m.Clone()
		}
	}
	if c.Reads != nil {
		out.Reads = make(map[string]*ChannelRead, len(c.Reads))
		for id, r := range c.Reads {
			cp := *r
			out.Reads[id] = &cp
		}
	}
	if c.HiddenMessagesBefore != nil {
		t := *c.HiddenMessagesBefore
		out.HiddenMessagesBefore = &t
	}
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		out.DeletedAt = &t
	}
	out.ExtraData = c.ExtraData.Clone()
	return &out
}

// SetMember upserts a member; passing a nil member removes the user.
func (c *Channel) SetMember(userID string, member *Member) {
	if member == nil {
		delete(c.Members, userID)
		return
	}
	if c.Members == nil {
		c.Members = make(map[string]*Member)
	}
	c.Members[userID] = member
}

// UpdateRead replaces the read state for the read's user, keeping only the
// most recent last-read timestamp.
func (c *Channel) UpdateRead(read *ChannelRead) {
	if read == nil || read.UserID == "" {
		return
	}
	if c.Reads == nil {
		c.Reads = make(map[string]*ChannelRead)
	}
	if cur, ok := c.Reads[read.UserID]; ok && cur.LastRead.After(read.LastRead) {
		return
	}
	c.Reads[read.UserID] = read
}

// Users returns every user referenced by the channel: creator-by-id is not
// resolvable here, but members carry full user instances.
func (c *Channel) Users() []*User {
	users := make([]*User, 0, len(c.Members))
	for _, m := range c.Members {
		if m != nil && m.User != nil {
			users = append(users, m.User)
		}
	}
	return users
}
