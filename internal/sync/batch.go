package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// BatchBuilder is the declarative first phase of a batch update: event
// classification registers which channels and messages must be loaded from
// the cache before any of them is read. All registered ids are then
// fetched in at most two repository queries; users arrive embedded in the
// events themselves.
type BatchBuilder struct {
	channelsToFetch map[string]struct{}
	messagesToFetch map[string]struct{}
	users           map[string]*model.User
}

// NewBatchBuilder returns an empty builder for one handling pass.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		channelsToFetch: make(map[string]struct{}),
		messagesToFetch: make(map[string]struct{}),
		users:           make(map[string]*model.User),
	}
}

// AddToFetchChannels registers channel cids to preload.
func (b *BatchBuilder) AddToFetchChannels(cids ...string) {
	for _, cid := range cids {
		if cid != "" {
			b.channelsToFetch[cid] = struct{}{}
		}
	}
}

// AddToFetchMessages registers message ids to preload.
func (b *BatchBuilder) AddToFetchMessages(ids ...string) {
	for _, id := range ids {
		if id != "" {
			b.messagesToFetch[id] = struct{}{}
		}
	}
}

// AddUsers seeds the working set with users carried by the events.
func (b *BatchBuilder) AddUsers(users ...*model.User) {
	for _, u := range users {
		if u != nil && u.ID != "" {
			b.users[u.ID] = u
		}
	}
}

// Build executes the batched reads and returns the mutable working set.
// Ids not present in the cache are simply absent from the maps.
func (b *BatchBuilder) Build(ctx context.Context, repo repository.Repository, state *GlobalState, fromSync bool, logger *zerolog.Logger) (*EventBatchUpdate, error) {
	batch := &EventBatchUpdate{
		repo:     repo,
		state:    state,
		fromSync: fromSync,
		channels: make(map[string]*model.Channel, len(b.channelsToFetch)),
		messages: make(map[string]*model.Message, len(b.messagesToFetch)),
		users:    b.users,
		log:      logger,
	}

	if len(b.channelsToFetch) > 0 {
		cids := make([]string, 0, len(b.channelsToFetch))
		for cid := range b.channelsToFetch {
			cids = append(cids, cid)
		}
		channels, err := repo.SelectChannels(ctx, cids)
		if err != nil {
			return nil, fmt.Errorf("preload channels: %w", err)
		}
		for _, ch := range channels {
			batch.channels[ch.CID()] = ch
		}
	}

	if len(b.messagesToFetch) > 0 {
		ids := make([]string, 0, len(b.messagesToFetch))
		for id := range b.messagesToFetch {
			ids = append(ids, id)
		}
		messages, err := repo.SelectMessages(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("preload messages: %w", err)
		}
		for _, msg := range messages {
			batch.messages[msg.ID] = msg
		}
	}

	return batch, nil
}

// EventBatchUpdate is the working set of one event-handling pass: three
// maps keyed by cid, message id and user id, pre-seeded from the cache and
// mutated in memory until Execute commits everything in one write pass.
// Each entity is read at most once and written at most once per pass, no
// matter how many events touch it.
type EventBatchUpdate struct {
	repo     repository.Repository
	state    *GlobalState
	fromSync bool

	channels map[string]*model.Channel
	messages map[string]*model.Message
	users    map[string]*model.User

	log *zerolog.Logger
}

// GetCurrentChannel returns a copy of the staged channel, or nil when the
// channel is neither staged nor cached. Mutate the copy and stage it back
// with AddChannel.
func (b *EventBatchUpdate) GetCurrentChannel(cid string) *model.Channel {
	return b.channels[cid].Clone()
}

// GetCurrentMessage returns a copy of the staged message, or nil.
func (b *EventBatchUpdate) GetCurrentMessage(id string) *model.Message {
	return b.messages[id].Clone()
}

// AddChannel stages a channel and every user referenced inside it.
func (b *EventBatchUpdate) AddChannel(ch *model.Channel) {
	if ch == nil {
		return
	}
	b.addUsers(ch.Users())
	b.channels[ch.CID()] = ch
}

// AddMessage stages a message and every user referenced inside it.
func (b *EventBatchUpdate) AddMessage(msg *model.Message) {
	if msg == nil || msg.ID == "" {
		return
	}
	if msg.User != nil {
		b.AddUser(msg.User)
	}
	for _, r := range msg.LatestReactions {
		if r.User != nil {
			b.AddUser(r.User)
		}
	}
	b.messages[msg.ID] = msg
}

// AddUser stages a user.
func (b *EventBatchUpdate) AddUser(u *model.User) {
	if u == nil || u.ID == "" {
		return
	}
	b.users[u.ID] = u
}

func (b *EventBatchUpdate) addUsers(users []*model.User) {
	for _, u := range users {
		b.AddUser(u)
	}
}

// Execute commits the working set: users first (so message and channel
// references resolve), then messages, then channels. The current user is
// excluded from the generic upsert; only explicit own-user events may
// rewrite the locally authoritative profile.
func (b *EventBatchUpdate) Execute(ctx context.Context) error {
	currentUserID := b.state.CurrentUserID()

	users := make([]*model.User, 0, len(b.users))
	for id, u := range b.users {
		if id == currentUserID {
			continue
		}
		users = append(users, u)
	}
	if err := b.repo.InsertUsers(ctx, users); err != nil {
		return fmt.Errorf("commit users: %w", err)
	}

	messages := make([]*model.Message, 0, len(b.messages))
	for _, msg := range b.messages {
		messages = append(messages, msg)
	}
	// Messages arriving through event sync are not pinned in the hot
	// cache; only locally composed messages are.
	if err := b.repo.InsertMessages(ctx, messages, false); err != nil {
		return fmt.Errorf("commit messages: %w", err)
	}

	channels := make([]*model.Channel, 0, len(b.channels))
	for _, ch := range b.channels {
		channels = append(channels, ch)
	}
	if err := b.repo.InsertChannels(ctx, channels); err != nil {
		return fmt.Errorf("commit channels: %w", err)
	}

	b.log.Debug().
		Int("users", len(users)).
		Int("messages", len(messages)).
		Int("channels", len(channels)).
		Bool("from_sync", b.fromSync).
		Msg("batch committed")
	return nil
}

// Size returns the number of staged entities, for metrics.
func (b *EventBatchUpdate) Size() int {
	return len(b.channels) + len(b.messages) + len(b.users)
}
