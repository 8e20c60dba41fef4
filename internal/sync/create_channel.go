package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/metrics"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
	"github.com/driftchat/driftchat-go/internal/utils"
)

// CreateChannelListener handles the optimistic create-channel flow. The
// locally generated cid is provisional: the server may assign a different
// one, in which case the local record migrates on reconciliation.
type CreateChannelListener struct {
	repo    repository.Repository
	state   *GlobalState
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewCreateChannelListener builds the listener.
func NewCreateChannelListener(repo repository.Repository, state *GlobalState, m *metrics.Metrics, logger *zerolog.Logger) *CreateChannelListener {
	return &CreateChannelListener{repo: repo, state: state, metrics: m, log: logger}
}

// OnCreateChannelPrecondition validates the request from local state only.
// A channel needs a session user, and either an explicit id or at least
// one member to derive one from.
func (l *CreateChannelListener) OnCreateChannelPrecondition(channelType, channelID string, memberIDs []string) error {
	if l.state.CurrentUserID() == "" {
		return ErrNoCurrentUser
	}
	if channelType == "" {
		return fmt.Errorf("create channel: missing channel type")
	}
	if channelID == "" && len(memberIDs) == 0 {
		return fmt.Errorf("create channel: channel id or members required")
	}
	return nil
}

// OnCreateChannelRequest stages the channel optimistically. The current
// user becomes the creator and first member.
func (l *CreateChannelListener) OnCreateChannelRequest(ctx context.Context, channel *model.Channel) error {
	me := l.state.CurrentUser()
	if me == nil {
		return ErrNoCurrentUser
	}

	ch := channel.Clone()
	now := time.Now()
	if ch.ID == "" {
		ch.ID = utils.ProvisionalChannelID()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}
	ch.CreatedByID = me.ID
	ch.SetMember(me.ID, &model.Member{User: me, CreatedAt: now})
	ch.SyncStatus = requestStatus(l.state)

	if err := l.repo.InsertUsers(ctx, ch.Users()); err != nil {
		return fmt.Errorf("stage channel users: %w", err)
	}
	if err := l.repo.InsertChannels(ctx, []*model.Channel{ch}); err != nil {
		return fmt.Errorf("stage channel: %w", err)
	}
	l.log.Debug().Str("cid", ch.CID()).Str("sync_status", string(ch.SyncStatus)).Msg("channel staged")
	return nil
}

// OnCreateChannelResult reconciles the staged channel with the server's
// answer. When the server assigned a different cid, the provisional record
// is deleted and the authoritative one inserted fresh.
func (l *CreateChannelListener) OnCreateChannelResult(ctx context.Context, localCid string, result *model.Channel, callErr error) error {
	if callErr == nil {
		confirmed := result.Clone()
		if confirmed == nil {
			return nil
		}
		confirmed.SyncStatus = model.SyncCompleted
		if confirmed.CID() != localCid {
			if err := l.repo.DeleteChannel(ctx, localCid); err != nil {
				return fmt.Errorf("drop provisional channel %s: %w", localCid, err)
			}
			l.log.Debug().Str("from", localCid).Str("to", confirmed.CID()).Msg("channel cid migrated")
		}
		if err := l.repo.InsertUsers(ctx, confirmed.Users()); err != nil {
			return fmt.Errorf("persist channel users: %w", err)
		}
		return l.repo.InsertChannels(ctx, []*model.Channel{confirmed})
	}

	status := resultStatus(callErr)
	if status == model.SyncFailedPermanently {
		l.metrics.ObserveListenerFailure("create_channel", "permanent")
	}

	ch, err := l.repo.SelectChannel(ctx, localCid)
	if err != nil {
		return fmt.Errorf("load channel %s: %w", localCid, err)
	}
	if ch == nil {
		return nil
	}
	ch = ch.Clone()
	ch.SyncStatus = status
	return l.repo.InsertChannels(ctx, []*model.Channel{ch})
}
