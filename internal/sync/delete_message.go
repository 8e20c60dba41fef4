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

// DeleteMessageListener handles the optimistic delete-message flow. Some
// messages never existed server-side or were already rejected; those are
// removed locally and the network call is short-circuited.
type DeleteMessageListener struct {
	repo    repository.Repository
	state   *GlobalState
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewDeleteMessageListener builds the listener.
func NewDeleteMessageListener(repo repository.Repository, state *GlobalState, m *metrics.Metrics, logger *zerolog.Logger) *DeleteMessageListener {
	return &DeleteMessageListener{repo: repo, state: state, metrics: m, log: logger}
}

// OnDeleteMessagePrecondition decides whether the deletion may go to the
// network. Unknown messages pass (nothing to reconcile locally). Bounced,
// error, ephemeral and permanently failed messages only ever existed
// locally; they are deleted here and ErrLocalOnlyDelete short-circuits the
// request.
func (l *DeleteMessageListener) OnDeleteMessagePrecondition(ctx context.Context, messageID string) error {
	msg, err := l.repo.SelectMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", messageID, err)
	}
	if msg == nil {
		return nil
	}
	if msg.Bounced || msg.Type == model.MessageTypeError || msg.Type == model.MessageTypeEphemeral ||
		msg.SyncStatus == model.SyncFailedPermanently {
		if err := l.repo.DeleteChannelMessage(ctx, msg); err != nil {
			return fmt.Errorf("delete local-only message %s: %w", messageID, err)
		}
		l.log.Debug().Str("id", messageID).Str("type", string(msg.Type)).Msg("local-only message deleted")
		return ErrLocalOnlyDelete
	}
	return nil
}

// OnDeleteMessageRequest marks the message deleted optimistically.
func (l *DeleteMessageListener) OnDeleteMessageRequest(ctx context.Context, messageID string) error {
	msg, err := l.repo.SelectMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", messageID, err)
	}
	if msg == nil {
		return nil
	}
	out := msg.Clone()
	now := time.Now()
	out.DeletedAt = &now
	out.Type = model.MessageTypeDeleted
	out.SyncStatus = requestStatus(l.state)
	return l.repo.InsertMessages(ctx, []*model.Message{out}, true)
}

// OnDeleteMessageResult reconciles the deletion with the server's answer.
// A permanent rejection still removes the local record: deletion flows
// never leave a terminal tombstone behind.
func (l *DeleteMessageListener) OnDeleteMessageResult(ctx context.Context, messageID string, result *model.Message, callErr error) error {
	local, err := l.repo.SelectMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", messageID, err)
	}
	if local == nil {
		return nil
	}

	if callErr == nil {
		confirmed := local.Clone()
		if result != nil {
			confirmed = result.Clone()
		}
		confirmed.SyncStatus = model.SyncCompleted
		return l.repo.InsertMessages(ctx, []*model.Message{confirmed}, true)
	}

	status := resultStatus(callErr)
	if status == model.SyncFailedPermanently {
		l.metrics.ObserveListenerFailure("delete_message", "permanent")
		return l.repo.DeleteChannelMessage(ctx, local)
	}
	msg := local.Clone()
	msg.SyncStatus = status
	return l.repo.InsertMessages(ctx, []*model.Message{msg}, true)
}
