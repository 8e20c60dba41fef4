package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/metrics"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// DeleteReactionListener handles the optimistic remove-reaction flow. The
// record is kept as a tombstone (Deleted flag) until the server confirms,
// so an offline deletion survives a restart and is retried.
type DeleteReactionListener struct {
	repo    repository.Repository
	state   *GlobalState
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewDeleteReactionListener builds the listener.
func NewDeleteReactionListener(repo repository.Repository, state *GlobalState, m *metrics.Metrics, logger *zerolog.Logger) *DeleteReactionListener {
	return &DeleteReactionListener{repo: repo, state: state, metrics: m, log: logger}
}

// OnDeleteReactionPrecondition validates the deletion from local state.
func (l *DeleteReactionListener) OnDeleteReactionPrecondition(reaction *model.Reaction) error {
	if l.state.CurrentUserID() == "" {
		return ErrNoCurrentUser
	}
	if reaction == nil || reaction.MessageID == "" || reaction.Type == "" {
		return fmt.Errorf("delete reaction: missing message id or type")
	}
	return nil
}

// OnDeleteReactionRequest tombstones the reaction and removes it from the
// cached message's views.
func (l *DeleteReactionListener) OnDeleteReactionRequest(ctx context.Context, reaction *model.Reaction) error {
	r := reaction.Clone()
	r.UserID = l.state.CurrentUserID()
	r.Deleted = true
	r.SyncStatus = requestStatus(l.state)

	if err := l.repo.InsertReaction(ctx, r); err != nil {
		return fmt.Errorf("tombstone reaction: %w", err)
	}

	msg, err := l.repo.SelectMessage(ctx, r.MessageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", r.MessageID, err)
	}
	if msg == nil {
		return nil
	}
	out := msg.Clone()
	out.RemoveReaction(r)
	return l.repo.InsertMessages(ctx, []*model.Message{out}, true)
}

// OnDeleteReactionResult reconciles the tombstone with the server's
// answer. Success and permanent rejection both drop the record; only a
// recoverable failure keeps it for retry.
func (l *DeleteReactionListener) OnDeleteReactionResult(ctx context.Context, reaction *model.Reaction, callErr error) error {
	status := resultStatus(callErr)
	switch status {
	case model.SyncCompleted:
		return l.repo.DeleteReaction(ctx, reaction)
	case model.SyncFailedPermanently:
		l.metrics.ObserveListenerFailure("delete_reaction", "permanent")
		return l.repo.DeleteReaction(ctx, reaction)
	default:
		r := reaction.Clone()
		r.UserID = l.state.CurrentUserID()
		r.Deleted = true
		r.SyncStatus = status
		return l.repo.InsertReaction(ctx, r)
	}
}
