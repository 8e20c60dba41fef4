package sync

import (
	"context"
	"testing"
	"time"

	"github.com/driftchat/driftchat-go/internal/client"
	"github.com/driftchat/driftchat-go/internal/event"
	"github.com/driftchat/driftchat-go/internal/model"
)

// fakeApi scripts per-entity outcomes: entries in fail get the mapped
// error, everything else succeeds by echoing the input.
type fakeApi struct {
	fail map[string]error

	createdChannels  []string
	sentMessages     []string
	deletedMessages  []string
	sentReactions    []string
	deletedReactions []string
}

func newFakeApi() *fakeApi {
	return &fakeApi{fail: make(map[string]error)}
}

func (f *fakeApi) CreateChannel(_ context.Context, ch *model.Channel) (*model.Channel, error) {
	f.createdChannels = append(f.createdChannels, ch.CID())
	if err, ok := f.fail[ch.CID()]; ok {
		return nil, err
	}
	out := ch.Clone()
	return out, nil
}

func (f *fakeApi) SendMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	f.sentMessages = append(f.sentMessages, msg.ID)
	if err, ok := f.fail[msg.ID]; ok {
		return nil, err
	}
	out := msg.Clone()
	out.CreatedAt = time.Now()
	return out, nil
}

func (f *fakeApi) DeleteMessage(_ context.Context, messageID string, _ bool) (*model.Message, error) {
	f.deletedMessages = append(f.deletedMessages, messageID)
	if err, ok := f.fail[messageID]; ok {
		return nil, err
	}
	return nil, nil
}

func (f *fakeApi) SendReaction(_ context.Context, r *model.Reaction) (*model.Reaction, error) {
	f.sentReactions = append(f.sentReactions, r.MessageID+"/"+r.Type)
	if err, ok := f.fail[r.MessageID]; ok {
		return nil, err
	}
	return r.Clone(), nil
}

func (f *fakeApi) DeleteReaction(_ context.Context, messageID, reactionType string) (*model.Message, error) {
	f.deletedReactions = append(f.deletedReactions, messageID+"/"+reactionType)
	if err, ok := f.fail[messageID]; ok {
		return nil, err
	}
	return nil, nil
}

func (f *fakeApi) QueryMembers(context.Context, string, int, int) ([]*model.Member, error) {
	return nil, nil
}

func (f *fakeApi) GetReplies(context.Context, string, int, string) ([]*model.Message, error) {
	return nil, nil
}

func (f *fakeApi) UpdateDraft(_ context.Context, d *model.Draft) (*model.Draft, error) {
	return d, nil
}

func (f *fakeApi) DeleteDraft(context.Context, string, string) error { return nil }

var _ client.ChatApi = (*fakeApi)(nil)

func newTestManager(repo *fakeRepo, api *fakeApi, online bool) (*SyncManager, *GlobalState) {
	state := newTestState(online)
	mgr := NewSyncManager(repo, api, state, nil, 1000, nil, testLogger())
	return mgr, state
}

func TestRetrySkippedWhileOffline(t *testing.T) {
	repo := newFakeRepo()
	repo.messages["m1"] = &model.Message{ID: "m1", CID: "messaging:1", SyncStatus: model.SyncNeeded}
	api := newFakeApi()
	mgr, _ := newTestManager(repo, api, false)

	if err := mgr.RetryFailedEntities(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(api.sentMessages) != 0 {
		t.Fatal("offline retry hit the network")
	}
	if repo.messages["m1"].SyncStatus != model.SyncNeeded {
		t.Fatal("pending message touched while offline")
	}
}

func TestRetryResubmitsOnlyPendingEntities(t *testing.T) {
	repo := newFakeRepo()
	repo.messages["pending"] = &model.Message{ID: "pending", CID: "messaging:1", SyncStatus: model.SyncNeeded}
	repo.messages["done"] = &model.Message{ID: "done", CID: "messaging:1", SyncStatus: model.SyncCompleted}
	repo.messages["dead"] = &model.Message{ID: "dead", CID: "messaging:1", SyncStatus: model.SyncFailedPermanently}
	api := newFakeApi()
	mgr, _ := newTestManager(repo, api, true)

	if err := mgr.RetryFailedEntities(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(api.sentMessages) != 1 || api.sentMessages[0] != "pending" {
		t.Fatalf("sent: %v", api.sentMessages)
	}
	if repo.messages["pending"].SyncStatus != model.SyncCompleted {
		t.Fatalf("pending not completed: %s", repo.messages["pending"].SyncStatus)
	}
	if repo.messages["dead"].SyncStatus != model.SyncFailedPermanently {
		t.Fatal("terminal message resurrected")
	}
}

func TestRetryRoutesDeletionsAndReactions(t *testing.T) {
	repo := newFakeRepo()
	deletedAt := time.Now()
	repo.messages["gone"] = &model.Message{ID: "gone", CID: "messaging:1", DeletedAt: &deletedAt, Type: model.MessageTypeDeleted, SyncStatus: model.SyncNeeded}
	repo.reactions["m1|me|like"] = &model.Reaction{MessageID: "m1", UserID: "me", Type: "like", SyncStatus: model.SyncNeeded}
	repo.reactions["m2|me|wow"] = &model.Reaction{MessageID: "m2", UserID: "me", Type: "wow", Deleted: true, SyncStatus: model.SyncNeeded}
	api := newFakeApi()
	mgr, _ := newTestManager(repo, api, true)

	if err := mgr.RetryFailedEntities(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(api.deletedMessages) != 1 || api.deletedMessages[0] != "gone" {
		t.Fatalf("deleted messages: %v", api.deletedMessages)
	}
	if len(api.sentMessages) != 0 {
		t.Fatalf("deletion resent as message: %v", api.sentMessages)
	}
	if len(api.sentReactions) != 1 || api.sentReactions[0] != "m1/like" {
		t.Fatalf("sent reactions: %v", api.sentReactions)
	}
	if len(api.deletedReactions) != 1 || api.deletedReactions[0] != "m2/wow" {
		t.Fatalf("deleted reactions: %v", api.deletedReactions)
	}
	if _, ok := repo.reactions["m2|me|wow"]; ok {
		t.Fatal("confirmed tombstone kept")
	}
}

func TestRetryOutcomeClassification(t *testing.T) {
	repo := newFakeRepo()
	repo.messages["transient"] = &model.Message{ID: "transient", CID: "messaging:1", SyncStatus: model.SyncNeeded}
	repo.messages["rejected"] = &model.Message{ID: "rejected", CID: "messaging:1", SyncStatus: model.SyncNeeded}
	api := newFakeApi()
	api.fail["transient"] = client.NewServerError(503, 0, "unavailable")
	api.fail["rejected"] = client.NewServerError(400, 4, "bad message")
	mgr, _ := newTestManager(repo, api, true)

	if err := mgr.RetryFailedEntities(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := repo.messages["transient"].SyncStatus; got != model.SyncNeeded {
		t.Fatalf("transient: %s", got)
	}
	if got := repo.messages["rejected"].SyncStatus; got != model.SyncFailedPermanently {
		t.Fatalf("rejected: %s", got)
	}
}

func TestUpdateLastSyncedAtIsMonotonic(t *testing.T) {
	repo := newFakeRepo()
	mgr, _ := newTestManager(repo, newFakeApi(), true)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	if err := mgr.UpdateLastSyncedAt(ctx, t2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := mgr.UpdateLastSyncedAt(ctx, t1); err != nil {
		t.Fatalf("regress attempt: %v", err)
	}

	st, err := repo.SelectSyncState(ctx, "me")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if st == nil || !st.LastSyncedAt.Equal(t2) {
		t.Fatalf("watermark regressed: %+v", st)
	}
}

func TestConnectionRecoveredReplaysJournal(t *testing.T) {
	repo := newFakeRepo()
	state := newTestState(true)
	replayer := &fakeReplayer{events: []event.Event{
		newMessageEvent("messaging:1", "m1", "missed while offline", at(10), &model.User{ID: "alice"}),
	}}
	mgr := NewSyncManager(repo, newFakeApi(), state, replayer, 1000, nil, testLogger())
	handler := NewEventHandler(repo, state, NewObserverRegistry(), mgr, nil, true, nil, testLogger())
	mgr.BindHandler(handler)

	if err := mgr.ConnectionRecovered(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if repo.messages["m1"] == nil {
		t.Fatal("journaled event not applied")
	}
	if replayer.since != 0 {
		t.Fatalf("replay watermark: %d", replayer.since)
	}
}

type fakeReplayer struct {
	events []event.Event
	since  int64
}

func (f *fakeReplayer) ReplaySince(since int64) ([]event.Event, error) {
	f.since = since
	return f.events, nil
}

func (f *fakeReplayer) PruneBefore(int64) (int, error) { return 0, nil }
