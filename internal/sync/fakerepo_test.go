package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// fakeRepo is an in-memory repository.Repository that counts calls, so
// tests can assert how often each entity was read and written.
type fakeRepo struct {
	channels  map[string]*model.Channel
	messages  map[string]*model.Message
	users     map[string]*model.User
	reactions map[string]*model.Reaction
	drafts    map[string]*model.Draft
	states    map[string]*repository.SyncState

	selectChannelsCalls   int
	selectChannelsCids    []string
	insertChannelsCalls   int
	channelWrites         map[string]int
	deletedChannels       []string
	channelDeletedAt      map[string]time.Time
	selectMessagesCalls   int
	insertMessagesCalls   int
	deletedMessages       []string
	deletedBefore         map[string]time.Time
	insertedUserIDs       []string
	insertCurrentUserCall int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		channels:         make(map[string]*model.Channel),
		messages:         make(map[string]*model.Message),
		users:            make(map[string]*model.User),
		reactions:        make(map[string]*model.Reaction),
		drafts:           make(map[string]*model.Draft),
		states:           make(map[string]*repository.SyncState),
		channelWrites:    make(map[string]int),
		channelDeletedAt: make(map[string]time.Time),
		deletedBefore:    make(map[string]time.Time),
	}
}

func (f *fakeRepo) SelectChannels(_ context.Context, cids []string) ([]*model.Channel, error) {
	f.selectChannelsCalls++
	f.selectChannelsCids = append(f.selectChannelsCids, cids...)
	var out []*model.Channel
	for _, cid := range cids {
		if ch, ok := f.channels[cid]; ok {
			out = append(out, ch.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) SelectChannel(ctx context.Context, cid string) (*model.Channel, error) {
	if ch, ok := f.channels[cid]; ok {
		return ch.Clone(), nil
	}
	return nil, nil
}

func (f *fakeRepo) SelectAllCids(context.Context) ([]string, error) {
	cids := make([]string, 0, len(f.channels))
	for cid := range f.channels {
		cids = append(cids, cid)
	}
	sort.Strings(cids)
	return cids, nil
}

func (f *fakeRepo) SelectChannelsBySyncStatus(_ context.Context, status model.SyncStatus) ([]*model.Channel, error) {
	var out []*model.Channel
	for _, ch := range f.channels {
		if ch.SyncStatus == status {
			out = append(out, ch.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertChannels(_ context.Context, channels []*model.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	f.insertChannelsCalls++
	for _, ch := range channels {
		f.channelWrites[ch.CID()]++
		f.channels[ch.CID()] = ch.Clone()
	}
	return nil
}

func (f *fakeRepo) DeleteChannel(_ context.Context, cid string) error {
	f.deletedChannels = append(f.deletedChannels, cid)
	delete(f.channels, cid)
	return nil
}

func (f *fakeRepo) SetChannelDeletedAt(_ context.Context, cid string, deletedAt time.Time) error {
	f.channelDeletedAt[cid] = deletedAt
	if ch, ok := f.channels[cid]; ok {
		updated := ch.Clone()
		updated.DeletedAt = &deletedAt
		f.channels[cid] = updated
	}
	return nil
}

func (f *fakeRepo) SelectMessages(_ context.Context, ids []string) ([]*model.Message, error) {
	f.selectMessagesCalls++
	var out []*model.Message
	for _, id := range ids {
		if msg, ok := f.messages[id]; ok {
			out = append(out, msg.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) SelectMessage(_ context.Context, id string) (*model.Message, error) {
	if msg, ok := f.messages[id]; ok {
		return msg.Clone(), nil
	}
	return nil, nil
}

func (f *fakeRepo) SelectMessagesForChannel(_ context.Context, cid string, limit int) ([]*model.Message, error) {
	var out []*model.Message
	for _, msg := range f.messages {
		if msg.CID == cid {
			out = append(out, msg.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) SelectMessagesBySyncStatus(_ context.Context, status model.SyncStatus) ([]*model.Message, error) {
	var out []*model.Message
	for _, msg := range f.messages {
		if msg.SyncStatus == status {
			out = append(out, msg.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertMessages(_ context.Context, messages []*model.Message, _ bool) error {
	if len(messages) == 0 {
		return nil
	}
	f.insertMessagesCalls++
	for _, msg := range messages {
		f.messages[msg.ID] = msg.Clone()
	}
	return nil
}

func (f *fakeRepo) DeleteChannelMessage(_ context.Context, message *model.Message) error {
	f.deletedMessages = append(f.deletedMessages, message.ID)
	delete(f.messages, message.ID)
	return nil
}

func (f *fakeRepo) DeleteChannelMessagesBefore(_ context.Context, cid string, before time.Time) error {
	f.deletedBefore[cid] = before
	for id, msg := range f.messages {
		if msg.CID == cid && msg.CreatedAt.Before(before) {
			delete(f.messages, id)
		}
	}
	return nil
}

func (f *fakeRepo) SelectUsers(_ context.Context, ids []string) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertUsers(_ context.Context, users []*model.User) error {
	for _, u := range users {
		f.insertedUserIDs = append(f.insertedUserIDs, u.ID)
		f.users[u.ID] = u.Clone()
	}
	return nil
}

func (f *fakeRepo) InsertCurrentUser(_ context.Context, user *model.User) error {
	f.insertCurrentUserCall++
	f.users[user.ID] = user.Clone()
	return nil
}

func (f *fakeRepo) SelectCurrentUser(context.Context) (*model.User, error) { return nil, nil }

func reactionKey(r *model.Reaction) string {
	return fmt.Sprintf("%s|%s|%s", r.MessageID, r.UserID, r.Type)
}

func (f *fakeRepo) InsertReaction(_ context.Context, reaction *model.Reaction) error {
	f.reactions[reactionKey(reaction)] = reaction.Clone()
	return nil
}

func (f *fakeRepo) SelectReactionsBySyncStatus(_ context.Context, status model.SyncStatus) ([]*model.Reaction, error) {
	var out []*model.Reaction
	for _, r := range f.reactions {
		if r.SyncStatus == status {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteReaction(_ context.Context, reaction *model.Reaction) error {
	delete(f.reactions, reactionKey(reaction))
	return nil
}

func draftKey(cid, parentID string) string { return cid + "|" + parentID }

func (f *fakeRepo) UpsertDraft(_ context.Context, draft *model.Draft) error {
	d := *draft
	f.drafts[draftKey(draft.CID, draft.ParentID)] = &d
	return nil
}

func (f *fakeRepo) SelectDraft(_ context.Context, cid, parentID string) (*model.Draft, error) {
	if d, ok := f.drafts[draftKey(cid, parentID)]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) DeleteDraft(_ context.Context, cid, parentID string) error {
	delete(f.drafts, draftKey(cid, parentID))
	return nil
}

func (f *fakeRepo) SelectSyncState(_ context.Context, userID string) (*repository.SyncState, error) {
	if st, ok := f.states[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) UpsertSyncState(_ context.Context, state *repository.SyncState) error {
	cp := *state
	f.states[state.UserID] = &cp
	return nil
}

func (f *fakeRepo) Close() error { return nil }

var _ repository.Repository = (*fakeRepo)(nil)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// newTestHandler wires a handler over a fresh fake repo for user "me".
func newTestHandler() (*EventHandler, *fakeRepo, *GlobalState, *ObserverRegistry) {
	repo := newFakeRepo()
	state := NewGlobalState(&model.User{ID: "me"})
	registry := NewObserverRegistry()
	h := NewEventHandler(repo, state, registry, nil, nil, false, nil, testLogger())
	return h, repo, state, registry
}
