package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/driftchat/driftchat-go/internal/client"
	"github.com/driftchat/driftchat-go/internal/event"
	"github.com/driftchat/driftchat-go/internal/metrics"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// JournalReplayer is the read side of the event journal.
type JournalReplayer interface {
	ReplaySince(sinceUnixNano int64) ([]event.Event, error)
	PruneBefore(beforeUnixNano int64) (int, error)
}

// How long journaled history is kept past the sync watermark.
const journalRetention = 7 * 24 * time.Hour

// SyncManager owns background synchronization: replaying journaled events
// after a reconnect, resubmitting entities left in SyncNeeded, and keeping
// the per-user sync watermark.
//
// All entry points run inside the handler's serialized context, either
// directly (connection events) or through synthetic Health events emitted
// by the schedule loop, so the manager never races the pipeline.
type SyncManager struct {
	repo    repository.Repository
	api     client.ChatApi
	state   *GlobalState
	journal JournalReplayer
	metrics *metrics.Metrics
	log     *zerolog.Logger

	createChannel  *CreateChannelListener
	sendMessage    *SendMessageListener
	deleteMessage  *DeleteMessageListener
	sendReaction   *SendReactionListener
	deleteReaction *DeleteReactionListener

	limiter *rate.Limiter

	handler *EventHandler
}

// NewSyncManager builds the manager. jnl may be nil, in which case replay
// after a reconnect is skipped. retriesPerSecond bounds how fast pending
// entities are resubmitted.
func NewSyncManager(
	repo repository.Repository,
	api client.ChatApi,
	state *GlobalState,
	jnl JournalReplayer,
	retriesPerSecond float64,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *SyncManager {
	if retriesPerSecond <= 0 {
		retriesPerSecond = 5
	}
	return &SyncManager{
		repo:           repo,
		api:            api,
		state:          state,
		journal:        jnl,
		metrics:        m,
		log:            logger,
		createChannel:  NewCreateChannelListener(repo, state, m, logger),
		sendMessage:    NewSendMessageListener(repo, state, m, logger),
		deleteMessage:  NewDeleteMessageListener(repo, state, m, logger),
		sendReaction:   NewSendReactionListener(repo, state, m, logger),
		deleteReaction: NewDeleteReactionListener(repo, state, m, logger),
		limiter:        rate.NewLimiter(rate.Limit(retriesPerSecond), 1),
	}
}

// BindHandler ties the manager to the handler whose serialized context it
// replays into. Must be called before the first connection event.
func (s *SyncManager) BindHandler(h *EventHandler) { s.handler = h }

var _ SyncCoordinator = (*SyncManager)(nil)

// ConnectionRecovered replays journaled history missed while offline, then
// resubmits pending entities. Replay is idempotent, so overlapping with
// already-applied events is harmless.
func (s *SyncManager) ConnectionRecovered(ctx context.Context) error {
	if s.journal != nil && s.handler != nil {
		st, err := s.syncState(ctx)
		if err != nil {
			return err
		}
		since := int64(0)
		if st != nil && !st.LastSyncedAt.IsZero() {
			since = st.LastSyncedAt.UnixNano()
		}
		events, err := s.journal.ReplaySince(since)
		if err != nil {
			return fmt.Errorf("replay journal: %w", err)
		}
		if len(events) > 0 {
			s.log.Info().Int("events", len(events)).Msg("replaying journaled history after reconnect")
			if err := s.handler.replayFromSync(ctx, events); err != nil {
				return fmt.Errorf("apply replayed events: %w", err)
			}
		}
	}
	return s.RetryFailedEntities(ctx)
}

// RetryFailedEntities resubmits every entity in SyncNeeded. Permanently
// failed entities are never picked up again.
func (s *SyncManager) RetryFailedEntities(ctx context.Context) error {
	if !s.state.Online() {
		return nil
	}
	if err := s.retryChannels(ctx); err != nil {
		return err
	}
	if err := s.retryMessages(ctx); err != nil {
		return err
	}
	return s.retryReactions(ctx)
}

func (s *SyncManager) retryChannels(ctx context.Context) error {
	channels, err := s.repo.SelectChannelsBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		return fmt.Errorf("select pending channels: %w", err)
	}
	for _, ch := range channels {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.metrics.ObserveRetry()
		result, callErr := s.api.CreateChannel(ctx, ch)
		if err := s.createChannel.OnCreateChannelResult(ctx, ch.CID(), result, callErr); err != nil {
			s.log.Error().Err(err).Str("cid", ch.CID()).Msg("channel retry reconciliation failed")
		}
	}
	return nil
}

func (s *SyncManager) retryMessages(ctx context.Context) error {
	messages, err := s.repo.SelectMessagesBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		return fmt.Errorf("select pending messages: %w", err)
	}
	for _, msg := range messages {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.metrics.ObserveRetry()
		if msg.DeletedAt != nil {
			result, callErr := s.api.DeleteMessage(ctx, msg.ID, false)
			if err := s.deleteMessage.OnDeleteMessageResult(ctx, msg.ID, result, callErr); err != nil {
				s.log.Error().Err(err).Str("id", msg.ID).Msg("message delete retry reconciliation failed")
			}
			continue
		}
		result, callErr := s.api.SendMessage(ctx, msg)
		if err := s.sendMessage.OnSendMessageResult(ctx, msg.ID, result, callErr); err != nil {
			s.log.Error().Err(err).Str("id", msg.ID).Msg("message retry reconciliation failed")
		}
	}
	return nil
}

func (s *SyncManager) retryReactions(ctx context.Context) error {
	reactions, err := s.repo.SelectReactionsBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		return fmt.Errorf("select pending reactions: %w", err)
	}
	for _, r := range reactions {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.metrics.ObserveRetry()
		if r.Deleted {
			_, callErr := s.api.DeleteReaction(ctx, r.MessageID, r.Type)
			if err := s.deleteReaction.OnDeleteReactionResult(ctx, r, callErr); err != nil {
				s.log.Error().Err(err).Str("message_id", r.MessageID).Msg("reaction delete retry reconciliation failed")
			}
			continue
		}
		result, callErr := s.api.SendReaction(ctx, r)
		if err := s.sendReaction.OnSendReactionResult(ctx, r, result, callErr); err != nil {
			s.log.Error().Err(err).Str("message_id", r.MessageID).Msg("reaction retry reconciliation failed")
		}
	}
	return nil
}

// UpdateAllReadStateForDate records when every channel was marked read.
func (s *SyncManager) UpdateAllReadStateForDate(ctx context.Context, userID string, at time.Time) error {
	st, err := s.syncState(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		st = &repository.SyncState{UserID: userID}
	}
	if at.After(st.MarkedAllReadAt) {
		st.MarkedAllReadAt = at
	}
	st.UpdatedAt = time.Now()
	return s.repo.UpsertSyncState(ctx, st)
}

// UpdateLastSyncedAt advances the sync watermark. It never moves
// backwards; a replayed batch cannot regress recovery progress.
func (s *SyncManager) UpdateLastSyncedAt(ctx context.Context, at time.Time) error {
	st, err := s.syncState(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		st = &repository.SyncState{UserID: s.state.CurrentUserID()}
	}
	if !at.After(st.LastSyncedAt) {
		return nil
	}
	st.LastSyncedAt = at
	st.UpdatedAt = time.Now()
	return s.repo.UpsertSyncState(ctx, st)
}

func (s *SyncManager) syncState(ctx context.Context) (*repository.SyncState, error) {
	userID := s.state.CurrentUserID()
	if userID == "" {
		return nil, nil
	}
	st, err := s.repo.SelectSyncState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	return st, nil
}

// RunSchedule drives periodic retries on a cron schedule by feeding
// synthetic Health events through the handler, so the retry always runs
// inside its serialized context. Journal pruning piggybacks on each tick.
// Blocks until ctx is canceled.
func (s *SyncManager) RunSchedule(ctx context.Context, cronExpr string) error {
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return fmt.Errorf("invalid sync schedule %q", cronExpr)
	}

	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now(), false)
		if err != nil {
			return fmt.Errorf("compute next sync tick: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		if s.handler != nil {
			s.handler.HandleEventsAsync(&event.Health{
				Base: event.Base{Type: event.TypeHealth, CreatedAt: time.Now()},
			})
		}
		if s.journal != nil {
			cutoff := time.Now().Add(-journalRetention).UnixNano()
			if n, err := s.journal.PruneBefore(cutoff); err != nil {
				s.log.Warn().Err(err).Msg("journal prune failed")
			} else if n > 0 {
				s.log.Debug().Int("pruned", n).Msg("journal pruned")
			}
		}
	}
}
