package model

import "time"

// Draft is an unsent message composition saved per channel (and optionally
// per thread via ParentID).
type Draft struct {
	CID       string    `json:"cid"`
	Text      string    `json:"text"`
	ParentID  string    `json:"parent_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
