package model

import "time"

// MessageType classifies a message.
type MessageType string

const (
	MessageTypeRegular   MessageType = "regular"
	MessageTypeError     MessageType = "error"
	MessageTypeEphemeral MessageType = "ephemeral"
	MessageTypeSystem    MessageType = "system"
	MessageTypeDeleted   MessageType = "deleted"
)

// Attachment is an opaque media/link payload carried by a message.
type Attachment struct {
	Type      string    `json:"type,omitempty"`
	Title     string    `json:"title,omitempty"`
	AssetURL  string    `json:"asset_url,omitempty"`
	ThumbURL  string    `json:"thumb_url,omitempty"`
	ExtraData ExtraData `json:"extra_data,omitempty"`
}

// Message is a single chat message owned by exactly one channel via CID.
type Message struct {
	ID             string         `json:"id"`
	CID            string         `json:"cid"`
	Text           string         `json:"text"`
	Type           MessageType    `json:"type,omitempty"`
	User           *User          `json:"user,omitempty"`
	ParentID       string         `json:"parent_id,omitempty"`
	ReplyCount     int            `json:"reply_count,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	LatestReactions []*Reaction   `json:"latest_reactions,omitempty"`
	OwnReactions   []*Reaction    `json:"own_reactions,omitempty"`
	ReactionCounts map[string]int `json:"reaction_counts,omitempty"`
	Shadowed       bool           `json:"shadowed,omitempty"`
	Pinned         bool           `json:"pinned,omitempty"`
	Bounced        bool           `json:"bounced,omitempty"`
	CreatedAt      time.Time      `json:"created_at,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
	LocalCreatedAt time.Time      `json:"local_created_at,omitempty"`
	ExtraData      ExtraData      `json:"extra_data,omitempty"`
	SyncStatus     SyncStatus     `json:"sync_status,omitempty"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.User = m.User.Clone()
	out.Attachments = append([]Attachment(nil), m.Attachments...)
	out.LatestReactions = cloneReactions(m.LatestReactions)
	out.OwnReactions = cloneReactions(m.OwnReactions)
	if m.ReactionCounts != nil {
		out.ReactionCounts = make(map[string]int, len(m.ReactionCounts))
		for k, v := range m.ReactionCounts {
			out.ReactionCounts[k] = v
		}
	}
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		out.DeletedAt = &t
	}
	out.ExtraData = m.ExtraData.Clone()
	return &out
}

// AddReaction upserts the reaction into the latest view, the own view when
// it belongs to ownUserID, and bumps the per-type count. Re-adding the same
// (user, type) pair overwrites instead of duplicating, so replays converge.
func (m *Message) AddReaction(r *Reaction, ownUserID string) {
	if r == nil {
		return
	}
	replaced := upsertReaction(&m.LatestReactions, r)
	if r.UserID == ownUserID {
		upsertReaction(&m.OwnReactions, r)
	}
	if !replaced {
		if m.ReactionCounts == nil {
			m.ReactionCounts = make(map[string]int)
		}
		m.ReactionCounts[r.Type]++
	}
}

// RemoveReaction deletes the (user, type) reaction from both views and
// decrements the per-type count. Removing an absent reaction is a no-op.
func (m *Message) RemoveReaction(r *Reaction) {
	if r == nil {
		return
	}
	removed := deleteReaction(&m.LatestReactions, r)
	deleteReaction(&m.OwnReactions, r)
	if removed && m.ReactionCounts != nil {
		if m.ReactionCounts[r.Type] <= 1 {
			delete(m.ReactionCounts, r.Type)
		} else {
			m.ReactionCounts[r.Type]--
		}
	}
}

func cloneReactions(rs []*Reaction) []*Reaction {
	if rs == nil {
		return nil
	}
	out := make([]*Reaction, len(rs))
	for i, r := range rs {
		cp := *r
		out[i] = &cp
	}
	return out
}

// upsertReaction replaces an existing (user, type) entry or appends.
// Returns true if an entry was replaced.
func upsertReaction(list *[]*Reaction, r *Reaction) bool {
	for i, cur := range *list {
		if cur.UserID == r.UserID && cur.Type == r.Type {
			(*list)[i] = r
			return true
		}
	}
	*list = append(*list, r)
	return false
}

func deleteReaction(list *[]*Reaction, r *Reaction) bool {
	for i, cur := range *list {
		if cur.UserID == r.UserID && cur.Type == r.Type {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
