package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCid is returned when a composite channel id is malformed.
var ErrInvalidCid = errors.New("invalid cid, expected format {type}:{id}")

// Cid builds a composite channel identifier from a channel type and id.
func Cid(channelType, channelID string) string {
	return channelType + ":" + channelID
}

// SplitCid splits a composite channel identifier into its type and id.
func SplitCid(cid string) (channelType, channelID string, err error) {
	channelType, channelID, ok := strings.Cut(cid, ":")
	if !ok || channelType == "" || channelID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCid, cid)
	}
	return channelType, channelID, nil
}
