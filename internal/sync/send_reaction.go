package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/metrics"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// SendReactionListener handles the optimistic add-reaction flow. The
// reaction record and the enclosing message's reaction views are both
// updated so the UI reflects the reaction before the server confirms it.
type SendReactionListener struct {
	repo    repository.Repository
	state   *GlobalState
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewSendReactionListener builds the listener.
func NewSendReactionListener(repo repository.Repository, state *GlobalState, m *metrics.Metrics, logger *zerolog.Logger) *SendReactionListener {
	return &SendReactionListener{repo: repo, state: state, metrics: m, log: logger}
}

// OnSendReactionPrecondition validates the reaction from local state only.
func (l *SendReactionListener) OnSendReactionPrecondition(reaction *model.Reaction) error {
	if l.state.CurrentUserID() == "" {
		return ErrNoCurrentUser
	}
	if reaction == nil || reaction.MessageID == "" {
		return fmt.Errorf("send reaction: missing message id")
	}
	if reaction.Type == "" {
		return fmt.Errorf("send reaction: missing reaction type")
	}
	return nil
}

// OnSendReactionRequest writes the reaction optimistically and folds it
// into the cached message's reaction views.
func (l *SendReactionListener) OnSendReactionRequest(ctx context.Context, reaction *model.Reaction) error {
	me := l.state.CurrentUser()
	if me == nil {
		return ErrNoCurrentUser
	}

	r := reaction.Clone()
	r.UserID = me.ID
	r.User = me
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Score == 0 {
		r.Score = 1
	}
	r.SyncStatus = requestStatus(l.state)

	if err := l.repo.InsertReaction(ctx, r); err != nil {
		return fmt.Errorf("stage reaction: %w", err)
	}

	msg, err := l.repo.SelectMessage(ctx, r.MessageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", r.MessageID, err)
	}
	if msg == nil {
		return nil
	}
	out := msg.Clone()
	out.AddReaction(r, me.ID)
	return l.repo.InsertMessages(ctx, []*model.Message{out}, true)
}

// OnSendReactionResult reconciles the staged reaction with the server's
// answer. The message views already hold the optimistic copy, so only the
// reaction record's status needs updating.
func (l *SendReactionListener) OnSendReactionResult(ctx context.Context, reaction *model.Reaction, result *model.Reaction, callErr error) error {
	if callErr == nil {
		confirmed := reaction.Clone()
		if result != nil {
			confirmed = result.Clone()
		}
		confirmed.SyncStatus = model.SyncCompleted
		return l.repo.InsertReaction(ctx, confirmed)
	}

	status := resultStatus(callErr)
	if status == model.SyncFailedPermanently {
		l.metrics.ObserveListenerFailure("send_reaction", "permanent")
		// The server rejected the reaction outright; roll the optimistic
		// copy back out of the message views.
		if msg, err := l.repo.SelectMessage(ctx, reaction.MessageID); err == nil && msg != nil {
			out := msg.Clone()
			out.RemoveReaction(reaction)
			if err := l.repo.InsertMessages(ctx, []*model.Message{out}, true); err != nil {
				return fmt.Errorf("roll back reaction on message %s: %w", reaction.MessageID, err)
			}
		}
	}
	r := reaction.Clone()
	r.SyncStatus = status
	return l.repo.InsertReaction(ctx, r)
}
