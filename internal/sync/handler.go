package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/event"
	"github.com/driftchat/driftchat-go/internal/metrics"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// SyncCoordinator is the background-sync surface the handler drives:
// recovery after reconnects, retry of entities awaiting sync, and sync
// progress bookkeeping. Its methods are invoked from the handler's
// serialized context.
type SyncCoordinator interface {
	ConnectionRecovered(ctx context.Context) error
	RetryFailedEntities(ctx context.Context) error
	UpdateAllReadStateForDate(ctx context.Context, userID string, at time.Time) error
	UpdateLastSyncedAt(ctx context.Context, at time.Time) error
}

// EventJournal is the raw-event log the handler appends to; replay for
// reconnect recovery reads it back through the SyncCoordinator.
type EventJournal interface {
	Append(events []event.Event) error
}

// EventHandler translates batches of backend events into cache mutations
// and forwards them to live observers.
//
// All event processing, whether dispatched synchronously or fire-and-
// forget, serializes through one mutex: the batch's read-mutate-commit
// cycle is not safe under concurrent execution against the same cache.
type EventHandler struct {
	repo            repository.Repository
	state           *GlobalState
	registry        *ObserverRegistry
	coordinator     SyncCoordinator
	journal         EventJournal
	recoveryEnabled bool
	metrics         *metrics.Metrics
	log             *zerolog.Logger

	mu            stdsync.Mutex
	connectedOnce bool

	queue   chan []event.Event
	quit    chan struct{}
	done    chan struct{}
	started bool
	stopMu  stdsync.Mutex
}

// NewEventHandler builds a handler. coordinator, jnl and m may be nil.
func NewEventHandler(
	repo repository.Repository,
	state *GlobalState,
	registry *ObserverRegistry,
	coordinator SyncCoordinator,
	jnl EventJournal,
	recoveryEnabled bool,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *EventHandler {
	return &EventHandler{
		repo:            repo,
		state:           state,
		registry:        registry,
		coordinator:     coordinator,
		journal:         jnl,
		recoveryEnabled: recoveryEnabled,
		metrics:         m,
		log:             logger,
		queue:           make(chan []event.Event, 64),
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start launches the worker that drains the async dispatch queue. The
// worker stops when ctx is canceled or Stop is called.
func (h *EventHandler) Start(ctx context.Context) {
	h.stopMu.Lock()
	defer h.stopMu.Unlock()
	if h.started {
		return
	}
	h.started = true

	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.quit:
				return
			case events := <-h.queue:
				if err := h.HandleEvents(ctx, events...); err != nil {
					h.log.Error().Err(err).Msg("async event batch failed")
				}
			}
		}
	}()
}

// Stop signals the worker and waits for in-flight processing. The queue
// itself stays open; late enqueues from a closing socket are dropped
// rather than drained.
func (h *EventHandler) Stop() {
	h.stopMu.Lock()
	defer h.stopMu.Unlock()
	if !h.started {
		return
	}
	h.started = false
	close(h.quit)
	<-h.done
}

// HandleEventsAsync enqueues a batch without waiting for it to be
// processed. Batches are still applied in submission order. After Stop
// the batch is dropped; a producer must never block on a dead worker.
func (h *EventHandler) HandleEventsAsync(events ...event.Event) {
	if len(events) == 0 {
		return
	}
	select {
	case h.queue <- events:
	case <-h.quit:
	}
}

// HandleEvents processes a batch and blocks until the cache is updated
// and observers are notified.
func (h *EventHandler) HandleEvents(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handleConnectionEvents(ctx, events)
	return h.handleBatch(ctx, events, false)
}

// replayFromSync reprocesses journaled events. It runs without taking the
// mutex because it is only reached from within a serialized handling pass
// (via SyncCoordinator.ConnectionRecovered).
func (h *EventHandler) replayFromSync(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	return h.handleBatch(ctx, events, true)
}

// handleConnectionEvents applies connection-lifecycle events one by one,
// in arrival order. They are never batched: they drive the session's
// online/offline/recovery state.
func (h *EventHandler) handleConnectionEvents(ctx context.Context, events []event.Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case *event.Disconnected:
			h.log.Info().Str("reason", e.Reason).Msg("marking session offline")
			h.state.SetConnectionState(ConnectionOffline)

		case *event.Connecting:
			h.state.SetConnectionState(ConnectionConnecting)

		case *event.Connected:
			h.log.Info().Msg("connected, marking session online and initialized")
			if err := h.updateCurrentUser(ctx, e.Me()); err != nil {
				h.log.Error().Err(err).Msg("rejecting connected event")
				continue
			}
			reconnect := h.connectedOnce
			h.connectedOnce = true
			h.state.SetConnectionState(ConnectionOnline)
			h.state.SetInitialized()

			if reconnect && h.recoveryEnabled && h.coordinator != nil {
				if err := h.coordinator.ConnectionRecovered(ctx); err != nil {
					h.log.Error().Err(err).Msg("connection recovery failed")
				}
			}

		case *event.Health:
			if h.coordinator != nil {
				if err := h.coordinator.RetryFailedEntities(ctx); err != nil {
					h.log.Error().Err(err).Msg("retry of pending entities failed")
				}
			}
		}
	}
}

// handleBatch runs the full pipeline for one batch: sort, declare fetches,
// load, transform, commit, cascade deletions, forward to observers.
func (h *EventHandler) handleBatch(ctx context.Context, events []event.Event, fromSync bool) error {
	started := time.Now()

	// Best-effort ordering; ties keep arrival order so replays stay
	// deterministic.
	sorted := event.SortStable(events)

	for _, ev := range sorted {
		h.metrics.ObserveEvent(string(ev.EventType()))
		h.log.Debug().Str("type", string(ev.EventType())).Time("created_at", ev.EventCreatedAt()).Msg("event received")
	}

	batch, err := h.buildBatch(ctx, sorted, fromSync)
	if err != nil {
		return err
	}

	for _, ev := range sorted {
		if err := h.applyEvent(ctx, batch, ev, fromSync); err != nil {
			// A single malformed event must not stall the batch.
			h.log.Warn().Err(err).Str("type", string(ev.EventType())).Msg("event skipped")
		}
	}

	if err := batch.Execute(ctx); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	h.metrics.ObserveBatch(batch.Size(), time.Since(started).Seconds())

	h.applyCascades(ctx, sorted)
	h.forwardEvents(sorted)

	if !fromSync && h.journal != nil {
		if err := h.journal.Append(sorted); err != nil {
			h.log.Warn().Err(err).Msg("journal append failed")
		}
	}
	if !fromSync && h.coordinator != nil {
		if last := sorted[len(sorted)-1].EventCreatedAt(); !last.IsZero() {
			if err := h.coordinator.UpdateLastSyncedAt(ctx, last); err != nil {
				h.log.Warn().Err(err).Msg("failed to advance sync watermark")
			}
		}
	}
	return nil
}

// buildBatch is the declarative first pass: every event registers the
// entities it needs from the cache, then everything is loaded at once.
func (h *EventHandler) buildBatch(ctx context.Context, sorted []event.Event, fromSync bool) (*EventBatchUpdate, error) {
	builder := NewBatchBuilder()

	for _, ev := range sorted {
		if ce, ok := ev.(event.CidEvent); ok {
			builder.AddToFetchChannels(ce.Cid())
		}
		if ue, ok := ev.(event.UserEvent); ok {
			builder.AddUsers(ue.EventUser())
		}
	}

	// Payloads may be absent on malformed frames; AddToFetchMessages drops
	// empty ids.
	for _, ev := range sorted {
		switch e := ev.(type) {
		case *event.NewMessage:
			builder.AddToFetchMessages(messageID(e.Message))
		case *event.MessageUpdated:
			builder.AddToFetchMessages(messageID(e.Message))
		case *event.MessageDeleted:
			builder.AddToFetchMessages(messageID(e.Message))
		case *event.NotificationMessageNew:
			builder.AddToFetchMessages(messageID(e.Message))
		case *event.ReactionNew:
			builder.AddToFetchMessages(reactionMessageID(e.Reaction))
		case *event.ReactionUpdated:
			builder.AddToFetchMessages(reactionMessageID(e.Reaction))
		case *event.ReactionDeleted:
			builder.AddToFetchMessages(reactionMessageID(e.Reaction))
		}
	}

	return builder.Build(ctx, h.repo, h.state, fromSync, h.log)
}

// applyEvent is the exhaustive per-variant transformation. Variants with
// no cache impact are listed explicitly so a new event type surfaces here
// as a compile-time switch audit rather than silent drift.
func (h *EventHandler) applyEvent(ctx context.Context, batch *EventBatchUpdate, ev event.Event, fromSync bool) error {
	switch e := ev.(type) {
	case *event.NewMessage:
		msg := h.enrichMessage(batch, e.Message, e.CID, e.EventUser())
		if msg == nil {
			return fmt.Errorf("message.new without message payload")
		}
		batch.AddMessage(msg)
		if !fromSync {
			h.state.SetUnreadCounts(e.TotalUnreadCount, e.UnreadChannels)
		}
		if ch := batch.GetCurrentChannel(e.CID); ch != nil {
			ch.Hidden = false
			if msg.CreatedAt.After(ch.LastMessageAt) {
				ch.LastMessageAt = msg.CreatedAt
			}
			batch.AddChannel(ch)
		}

	case *event.MessageUpdated:
		batch.AddMessage(h.enrichMessage(batch, e.Message, e.CID, e.EventUser()))

	case *event.MessageDeleted:
		batch.AddMessage(h.enrichMessage(batch, e.Message, e.CID, e.EventUser()))

	case *event.NotificationMessageNew:
		msg := h.enrichMessage(batch, e.Message, e.CID, nil)
		if msg == nil {
			return fmt.Errorf("notification.message_new without message payload")
		}
		batch.AddMessage(msg)
		if !fromSync {
			h.state.SetUnreadCounts(e.TotalUnreadCount, e.UnreadChannels)
		}
		if e.Channel != nil {
			ch := e.Channel.Clone()
			ch.Hidden = false
			batch.AddChannel(ch)
		}

	case *event.ReactionNew:
		batch.AddMessage(h.enrichMessage(batch, e.Message, e.CID, e.EventUser()))

	case *event.ReactionUpdated:
		batch.AddMessage(h.enrichMessage(batch, e.Message, e.CID, e.EventUser()))

	case *event.ReactionDeleted:
		batch.AddMessage(h.enrichMessage(batch, e.Message, e.CID, e.EventUser()))

	case *event.MemberAdded:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil && e.Member != nil && e.Member.User != nil {
			ch.SetMember(e.Member.User.ID, e.Member)
			batch.AddChannel(ch)
		}

	case *event.MemberUpdated:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil && e.Member != nil && e.Member.User != nil {
			ch.SetMember(e.Member.User.ID, e.Member)
			batch.AddChannel(ch)
		}

	case *event.MemberRemoved:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil && e.User != nil {
			ch.SetMember(e.User.ID, nil)
			batch.AddChannel(ch)
		}

	case *event.NotificationRemovedFromChannel:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil {
			if e.User != nil {
				ch.SetMember(e.User.ID, nil)
			}
			batch.AddChannel(ch)
		}

	case *event.NotificationAddedToChannel:
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.NotificationInvited:
		batch.AddUser(e.User)
		if e.Member != nil {
			batch.AddUser(e.Member.User)
		}

	case *event.NotificationInviteAccepted:
		batch.AddUser(e.User)
		if e.Member != nil {
			batch.AddUser(e.Member.User)
		}
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.NotificationInviteRejected:
		batch.AddUser(e.User)
		if e.Member != nil {
			batch.AddUser(e.Member.User)
		}
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.ChannelUpdated:
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.ChannelDeleted:
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.ChannelTruncated:
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.NotificationChannelDeleted:
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.NotificationChannelTruncated:
		if e.Channel != nil {
			batch.AddChannel(e.Channel.Clone())
		}

	case *event.ChannelHidden:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil {
			ch.Hidden = true
			if e.ClearHistory {
				cutoff := e.CreatedAt
				ch.HiddenMessagesBefore = &cutoff
			}
			batch.AddChannel(ch)
		}

	case *event.ChannelVisible:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil {
			ch.Hidden = false
			batch.AddChannel(ch)
		}

	case *event.NotificationMutesUpdated:
		return h.updateCurrentUser(ctx, e.Me())

	case *event.NotificationChannelMutesUpdated:
		return h.updateCurrentUser(ctx, e.Me())

	case *event.MessageRead:
		if ch := batch.GetCurrentChannel(e.CID); ch != nil && e.User != nil {
			ch.UpdateRead(&model.ChannelRead{UserID: e.User.ID, LastRead: e.CreatedAt})
			batch.AddChannel(ch)
		}

	case *event.NotificationMarkRead:
		if !fromSync {
			h.state.SetUnreadCounts(e.TotalUnreadCount, e.UnreadChannels)
		}
		if ch := batch.GetCurrentChannel(e.CID); ch != nil && e.User != nil {
			ch.UpdateRead(&model.ChannelRead{UserID: e.User.ID, LastRead: e.CreatedAt})
			batch.AddChannel(ch)
		}

	case *event.MarkAllRead:
		h.state.SetUnreadCounts(e.TotalUnreadCount, e.UnreadChannels)
		if h.coordinator != nil && e.User != nil {
			// Persisted once per batch instead of per channel.
			if err := h.coordinator.UpdateAllReadStateForDate(ctx, e.User.ID, e.CreatedAt); err != nil {
				return err
			}
		}

	case *event.UserBanned:
		if e.User != nil {
			u := e.User.Clone()
			u.Banned = true
			batch.AddUser(u)
		}

	case *event.UserUnbanned:
		if e.User != nil {
			u := e.User.Clone()
			u.Banned = false
			batch.AddUser(u)
		}

	case *event.UserUpdated:
		// The generic user commit already stages non-current users; the
		// current user's profile is only rewritten by own-user events.

	case *event.TypingStart, *event.TypingStop,
		*event.UserDeleted, *event.UserPresenceChanged,
		*event.UserWatchingStart, *event.UserWatchingStop,
		*event.Connected, *event.Connecting, *event.Disconnected,
		*event.Health, *event.Error, *event.Unknown:
		// No cache impact.

	default:
		// An unregistered variant is forward progress, never a failure.
		h.log.Warn().Str("type", string(ev.EventType())).Msg("unhandled event variant")
	}
	return nil
}

// applyCascades runs the post-commit cleanup pass for truncation and
// deletion events.
func (h *EventHandler) applyCascades(ctx context.Context, sorted []event.Event) {
	for _, ev := range sorted {
		switch e := ev.(type) {
		case *event.ChannelTruncated:
			if err := h.repo.DeleteChannelMessagesBefore(ctx, e.CID, e.CreatedAt); err != nil {
				h.log.Error().Err(err).Str("cid", e.CID).Msg("truncate cascade failed")
			}
		case *event.NotificationChannelTruncated:
			if err := h.repo.DeleteChannelMessagesBefore(ctx, e.CID, e.CreatedAt); err != nil {
				h.log.Error().Err(err).Str("cid", e.CID).Msg("truncate cascade failed")
			}
		case *event.ChannelDeleted:
			if err := h.repo.DeleteChannelMessagesBefore(ctx, e.CID, e.CreatedAt); err != nil {
				h.log.Error().Err(err).Str("cid", e.CID).Msg("delete cascade failed")
			}
			if err := h.repo.SetChannelDeletedAt(ctx, e.CID, e.CreatedAt); err != nil {
				h.log.Error().Err(err).Str("cid", e.CID).Msg("marking channel deleted failed")
			}
		case *event.MessageDeleted:
			if e.HardDelete && e.Message != nil {
				if err := h.repo.DeleteChannelMessage(ctx, e.Message); err != nil {
					h.log.Error().Err(err).Str("cid", e.CID).Msg("hard delete failed")
				}
			}
		}
	}
}

// forwardEvents distributes the processed batch to live observers.
func (h *EventHandler) forwardEvents(sorted []event.Event) {
	// Per-channel forwarding, grouped by cid, preserving order.
	byCid := make(map[string][]event.Event)
	var order []string
	for _, ev := range sorted {
		ce, ok := ev.(event.CidEvent)
		if !ok || ce.Cid() == "" {
			continue
		}
		if _, seen := byCid[ce.Cid()]; !seen {
			order = append(order, ce.Cid())
		}
		byCid[ce.Cid()] = append(byCid[ce.Cid()], ev)
	}
	for _, cid := range order {
		if obs := h.registry.Channel(cid); obs != nil {
			obs.HandleEvents(byCid[cid])
		}
	}

	// Mark-all-read and mute updates apply to every active channel.
	for _, ev := range sorted {
		switch ev.(type) {
		case *event.MarkAllRead, *event.NotificationChannelMutesUpdated:
			for _, obs := range h.registry.ActiveChannels() {
				obs.HandleEvents([]event.Event{ev})
			}
		case *event.UserPresenceChanged:
			e := ev.(*event.UserPresenceChanged)
			for _, obs := range h.registry.ActiveChannels() {
				if mc, ok := obs.(MemberChecker); ok && e.User != nil && !mc.HasMember(e.User.ID) {
					continue
				}
				obs.HandleEvents([]event.Event{ev})
			}
		}
	}

	// Queries observe everything; they decide membership of their result
	// sets themselves.
	for _, q := range h.registry.Queries() {
		q.HandleEvents(sorted)
	}
}

// enrichMessage prepares an event-carried message for staging: binds the
// cid and reconstructs the own-reactions view, which the backend never
// sends for other users' events.
func (h *EventHandler) enrichMessage(batch *EventBatchUpdate, msg *model.Message, cid string, actor *model.User) *model.Message {
	if msg == nil {
		return nil
	}
	out := msg.Clone()
	if out.CID == "" {
		out.CID = cid
	}

	currentUserID := h.state.CurrentUserID()
	current := batch.GetCurrentMessage(out.ID)

	if actor != nil && actor.ID != currentUserID {
		// Another user's activity cannot change what we reacted with;
		// keep the cached own view.
		if current != nil {
			out.OwnReactions = current.OwnReactions
		} else {
			out.OwnReactions = nil
		}
		return out
	}

	// Our own activity: rebuild the own view from the event's latest
	// reactions, merged with what the cache already knows.
	var own []*model.Reaction
	for _, r := range out.LatestReactions {
		if r.UserID == currentUserID {
			own = append(own, r)
		}
	}
	if current != nil {
		for _, r := range current.OwnReactions {
			if !containsReaction(own, r) {
				own = append(own, r)
			}
		}
	}
	out.OwnReactions = own
	return out
}

func messageID(msg *model.Message) string {
	if msg == nil {
		return ""
	}
	return msg.ID
}

func reactionMessageID(r *model.Reaction) string {
	if r == nil {
		return ""
	}
	return r.MessageID
}

func containsReaction(list []*model.Reaction, r *model.Reaction) bool {
	for _, cur := range list {
		if cur.UserID == r.UserID && cur.Type == r.Type {
			return true
		}
	}
	return false
}

// updateCurrentUser applies an authoritative own-user payload to the
// session state and the cache.
func (h *EventHandler) updateCurrentUser(ctx context.Context, me *model.User) error {
	if me == nil {
		return fmt.Errorf("own-user event without user payload")
	}
	if err := h.state.SetCurrentUser(me); err != nil {
		return err
	}
	if err := h.repo.InsertCurrentUser(ctx, me); err != nil {
		return fmt.Errorf("persist current user: %w", err)
	}
	return nil
}
