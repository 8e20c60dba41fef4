package client

import (
	"context"

	"github.com/driftchat/driftchat-go/internal/model"
)

// ChatApi is the network surface the sync core depends on. The wire
// protocol behind it is owned by the backend; implementations must report
// failures through *Error so they can be classified for retry.
type ChatApi interface {
	// CreateChannel creates (or idempotently gets) a channel. The returned
	// channel is authoritative and may carry a different cid than the
	// locally generated one.
	CreateChannel(ctx context.Context, channel *model.Channel) (*model.Channel, error)

	// SendMessage posts a message to its channel.
	SendMessage(ctx context.Context, message *model.Message) (*model.Message, error)

	// DeleteMessage soft-deletes a message, or erases it when hard is set.
	DeleteMessage(ctx context.Context, messageID string, hard bool) (*model.Message, error)

	// SendReaction adds or updates the sender's reaction on a message.
	SendReaction(ctx context.Context, reaction *model.Reaction) (*model.Reaction, error)

	// DeleteReaction removes the sender's reaction of the given type.
	DeleteReaction(ctx context.Context, messageID, reactionType string) (*model.Message, error)

	// QueryMembers pages through a channel's members.
	QueryMembers(ctx context.Context, cid string, limit, offset int) ([]*model.Member, error)

	// GetReplies pages through a thread, oldest first.
	GetReplies(ctx context.Context, parentID string, limit int, beforeID string) ([]*model.Message, error)

	// UpdateDraft upserts the caller's draft for a channel or thread.
	UpdateDraft(ctx context.Context, draft *model.Draft) (*model.Draft, error)

	// DeleteDraft removes the caller's draft for a channel or thread.
	DeleteDraft(ctx context.Context, cid, parentID string) error
}
