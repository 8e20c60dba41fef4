package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a unique identifier for locally created entities.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp if the entropy source is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}

// ProvisionalChannelID returns a local channel id for a channel created
// before the server assigns its authoritative one.
func ProvisionalChannelID() string {
	return "local-" + NewID()
}

// IsProvisionalChannelID reports whether the id was generated locally.
func IsProvisionalChannelID(id string) bool {
	return strings.HasPrefix(id, "local-")
}
