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

// SendMessageListener handles the optimistic send-message flow.
type SendMessageListener struct {
	repo    repository.Repository
	state   *GlobalState
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewSendMessageListener builds the listener.
func NewSendMessageListener(repo repository.Repository, state *GlobalState, m *metrics.Metrics, logger *zerolog.Logger) *SendMessageListener {
	return &SendMessageListener{repo: repo, state: state, metrics: m, log: logger}
}

// OnSendMessagePrecondition validates the message from local state only.
func (l *SendMessageListener) OnSendMessagePrecondition(message *model.Message) error {
	if l.state.CurrentUserID() == "" {
		return ErrNoCurrentUser
	}
	if message == nil || message.ID == "" {
		return fmt.Errorf("send message: missing message id")
	}
	if _, _, err := model.SplitCid(message.CID); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// OnSendMessageRequest writes the message optimistically, pinned in the
// hot cache so locally composed messages survive event-sync eviction.
func (l *SendMessageListener) OnSendMessageRequest(ctx context.Context, message *model.Message) error {
	msg := message.Clone()
	now := time.Now()
	if msg.LocalCreatedAt.IsZero() {
		msg.LocalCreatedAt = now
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = msg.LocalCreatedAt
	}
	if msg.Type == "" {
		msg.Type = model.MessageTypeRegular
	}
	if msg.User == nil {
		msg.User = l.state.CurrentUser()
	}
	msg.SyncStatus = requestStatus(l.state)

	if err := l.repo.InsertMessages(ctx, []*model.Message{msg}, true); err != nil {
		return fmt.Errorf("stage message: %w", err)
	}
	l.log.Debug().Str("id", msg.ID).Str("cid", msg.CID).Str("sync_status", string(msg.SyncStatus)).Msg("message staged")
	return nil
}

// OnSendMessageResult reconciles the staged message with the server's
// answer. The server copy wins on success; the local timestamp is kept so
// list ordering does not jump.
func (l *SendMessageListener) OnSendMessageResult(ctx context.Context, messageID string, result *model.Message, callErr error) error {
	local, err := l.repo.SelectMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", messageID, err)
	}

	if callErr == nil {
		confirmed := local.Clone()
		if result != nil {
			confirmed = result.Clone()
		}
		if confirmed == nil {
			return nil
		}
		confirmed.SyncStatus = model.SyncCompleted
		if local != nil {
			confirmed.LocalCreatedAt = local.LocalCreatedAt
		}
		return l.repo.InsertMessages(ctx, []*model.Message{confirmed}, true)
	}

	if local == nil {
		return nil
	}
	status := resultStatus(callErr)
	if status == model.SyncFailedPermanently {
		l.metrics.ObserveListenerFailure("send_message", "permanent")
	}
	msg := local.Clone()
	msg.SyncStatus = status
	return l.repo.InsertMessages(ctx, []*model.Message{msg}, true)
}
