package model

import "time"

// Reaction is a single user's typed reaction to a message, identified by
// the (MessageID, UserID, Type) composite.
type Reaction struct {
	MessageID  string     `json:"message_id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Score      int        `json:"score,omitempty"`
	User       *User      `json:"user,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
	Deleted    bool       `json:"deleted,omitempty"`
	SyncStatus SyncStatus `json:"sync_status,omitempty"`
}

// Clone returns a deep copy of the reaction.
func (r *Reaction) Clone() *Reaction {
	if r == nil {
		return nil
	}
	out := *r
	out.User = r.User.Clone()
	return &out
}
