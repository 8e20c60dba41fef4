package repository

import (
	"context"
	"time"

	"github.com/driftchat/driftchat-go/internal/model"
)

// SyncState tracks per-user synchronization progress so recovery after a
// reconnect can replay only what was missed.
type SyncState struct {
	UserID          string
	LastSyncedAt    time.Time
	MarkedAllReadAt time.Time
	UpdatedAt       time.Time
}

// ChannelRepository handles channel persistence.
type ChannelRepository interface {
	// SelectChannels retrieves channels by cid. Unknown cids are skipped,
	// not reported as errors.
	SelectChannels(ctx context.Context, cids []string) ([]*model.Channel, error)

	// SelectChannel retrieves one channel, or nil when not cached.
	SelectChannel(ctx context.Context, cid string) (*model.Channel, error)

	// SelectAllCids lists every cached channel id.
	SelectAllCids(ctx context.Context) ([]string, error)

	// SelectChannelsBySyncStatus lists channels awaiting reconciliation.
	SelectChannelsBySyncStatus(ctx context.Context, status model.SyncStatus) ([]*model.Channel, error)

	// InsertChannels upserts channels.
	InsertChannels(ctx context.Context, channels []*model.Channel) error

	// DeleteChannel removes a channel record.
	DeleteChannel(ctx context.Context, cid string) error

	// SetChannelDeletedAt marks a channel deleted without removing it.
	SetChannelDeletedAt(ctx context.Context, cid string, deletedAt time.Time) error
}

// MessageRepository handles message persistence.
type MessageRepository interface {
	// SelectMessages retrieves messages by id. Unknown ids are skipped.
	SelectMessages(ctx context.Context, ids []string) ([]*model.Message, error)

	// SelectMessage retrieves one message, or nil when not cached.
	SelectMessage(ctx context.Context, id string) (*model.Message, error)

	// SelectMessagesForChannel retrieves a channel's newest messages.
	SelectMessagesForChannel(ctx context.Context, cid string, limit int) ([]*model.Message, error)

	// SelectMessagesBySyncStatus lists messages awaiting reconciliation.
	SelectMessagesBySyncStatus(ctx context.Context, status model.SyncStatus) ([]*model.Message, error)

	// InsertMessages upserts messages. cache marks messages composed
	// locally, which are kept pinned in the hot cache rather than evicted
	// with event-synced rows.
	InsertMessages(ctx context.Context, messages []*model.Message, cache bool) error

	// DeleteChannelMessage removes a single message record.
	DeleteChannelMessage(ctx context.Context, message *model.Message) error

	// DeleteChannelMessagesBefore removes a channel's messages created
	// before the cutoff.
	DeleteChannelMessagesBefore(ctx context.Context, cid string, before time.Time) error
}

// UserRepository handles user persistence.
type UserRepository interface {
	// SelectUsers retrieves users by id. Unknown ids are skipped.
	SelectUsers(ctx context.Context, ids []string) ([]*model.User, error)

	// InsertUsers upserts users.
	InsertUsers(ctx context.Context, users []*model.User) error

	// InsertCurrentUser upserts the locally authoritative own-user record.
	InsertCurrentUser(ctx context.Context, user *model.User) error

	// SelectCurrentUser retrieves the own-user record, or nil.
	SelectCurrentUser(ctx context.Context) (*model.User, error)
}

// ReactionRepository handles reaction persistence for optimistic sends.
type ReactionRepository interface {
	// InsertReaction upserts a reaction keyed by (message, user, type).
	InsertReaction(ctx context.Context, reaction *model.Reaction) error

	// SelectReactionsBySyncStatus lists reactions awaiting reconciliation.
	SelectReactionsBySyncStatus(ctx context.Context, status model.SyncStatus) ([]*model.Reaction, error)

	// DeleteReaction removes a reaction record.
	DeleteReaction(ctx context.Context, reaction *model.Reaction) error
}

// DraftRepository handles locally saved message drafts.
type DraftRepository interface {
	// UpsertDraft saves a draft keyed by (cid, parent id).
	UpsertDraft(ctx context.Context, draft *model.Draft) error

	// SelectDraft retrieves a draft, or nil.
	SelectDraft(ctx context.Context, cid, parentID string) (*model.Draft, error)

	// DeleteDraft removes a draft record.
	DeleteDraft(ctx context.Context, cid, parentID string) error
}

// SyncStateRepository persists per-user sync progress.
type SyncStateRepository interface {
	// SelectSyncState retrieves the state for a user, or nil.
	SelectSyncState(ctx context.Context, userID string) (*SyncState, error)

	// UpsertSyncState saves the state.
	UpsertSyncState(ctx context.Context, state *SyncState) error
}

// Repository aggregates all persistence interfaces consumed by the sync
// core.
type Repository interface {
	ChannelRepository
	MessageRepository
	UserRepository
	ReactionRepository
	DraftRepository
	SyncStateRepository

	// Close closes the underlying database.
	Close() error
}
