package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChannelRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch := &model.Channel{Type: "messaging", ID: "general", Name: "General"}
	ch.SetMember("alice", &model.Member{User: &model.User{ID: "alice", Name: "Alice"}})
	if err := s.InsertChannels(ctx, []*model.Channel{ch}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.SelectChannel(ctx, "messaging:general")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got == nil || got.Name != "General" {
		t.Fatalf("got %+v", got)
	}
	if got.Members["alice"] == nil || got.Members["alice"].User.Name != "Alice" {
		t.Fatalf("members not preserved: %+v", got.Members)
	}

	// Upsert replaces the document.
	ch.Name = "General (renamed)"
	if err := s.InsertChannels(ctx, []*model.Channel{ch}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = s.SelectChannel(ctx, "messaging:general")
	if err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if got.Name != "General (renamed)" {
		t.Fatalf("upsert did not replace: %q", got.Name)
	}

	cids, err := s.SelectAllCids(ctx)
	if err != nil {
		t.Fatalf("cids: %v", err)
	}
	if len(cids) != 1 || cids[0] != "messaging:general" {
		t.Fatalf("cids: %v", cids)
	}
}

func TestSelectChannelMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.SelectChannel(context.Background(), "messaging:nope")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestChannelSyncStatusDefaultsToCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertChannels(ctx, []*model.Channel{
		{Type: "messaging", ID: "plain"},
		{Type: "messaging", ID: "pending", SyncStatus: model.SyncNeeded},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.SelectChannelsBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		t.Fatalf("select pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "pending" {
		t.Fatalf("pending: %+v", pending)
	}

	completed, err := s.SelectChannelsBySyncStatus(ctx, model.SyncCompleted)
	if err != nil {
		t.Fatalf("select completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "plain" {
		t.Fatalf("completed: %+v", completed)
	}
}

func TestMessagesForChannelNewestFirstAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var msgs []*model.Message
	for i := 0; i < 5; i++ {
		msgs = append(msgs, &model.Message{
			ID:        string(rune('a' + i)),
			CID:       "messaging:1",
			Text:      "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	msgs = append(msgs, &model.Message{ID: "other", CID: "messaging:2", CreatedAt: base})
	if err := s.InsertMessages(ctx, msgs, false); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.SelectMessagesForChannel(ctx, "messaging:1", 2)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e" || got[1].ID != "d" {
		ids := make([]string, 0, len(got))
		for _, m := range got {
			ids = append(ids, m.ID)
		}
		t.Fatalf("newest-first slice wrong: %v", ids)
	}

	all, err := s.SelectMessagesForChannel(ctx, "messaging:1", 0)
	if err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("non-positive limit returned %d messages", len(all))
	}
}

func TestMessageLocalCreatedAtUsedWhenUnsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.InsertMessages(ctx, []*model.Message{
		{ID: "sent", CID: "messaging:1", CreatedAt: base},
		{ID: "pending", CID: "messaging:1", LocalCreatedAt: base.Add(time.Minute), SyncStatus: model.SyncNeeded},
	}, true); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.SelectMessagesForChannel(ctx, "messaging:1", 1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 1 || got[0].ID != "pending" {
		t.Fatalf("pending message not ordered by local timestamp: %+v", got)
	}
}

func TestDeleteChannelMessagesBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.InsertMessages(ctx, []*model.Message{
		{ID: "old", CID: "messaging:1", CreatedAt: cutoff.Add(-time.Hour)},
		{ID: "new", CID: "messaging:1", CreatedAt: cutoff.Add(time.Hour)},
		{ID: "elsewhere", CID: "messaging:2", CreatedAt: cutoff.Add(-time.Hour)},
	}, false); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.DeleteChannelMessagesBefore(ctx, "messaging:1", cutoff); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if m, _ := s.SelectMessage(ctx, "old"); m != nil {
		t.Fatal("old message survived truncation")
	}
	if m, _ := s.SelectMessage(ctx, "new"); m == nil {
		t.Fatal("new message removed")
	}
	if m, _ := s.SelectMessage(ctx, "elsewhere"); m == nil {
		t.Fatal("other channel touched")
	}
}

func TestMessagesBySyncStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertMessages(ctx, []*model.Message{
		{ID: "p1", CID: "messaging:1", SyncStatus: model.SyncNeeded},
		{ID: "p2", CID: "messaging:1", SyncStatus: model.SyncNeeded},
		{ID: "done", CID: "messaging:1"},
	}, true); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.SelectMessagesBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending: %d", len(pending))
	}
}

func TestCurrentUserFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertUsers(ctx, []*model.User{{ID: "alice"}, {ID: "bob"}}); err != nil {
		t.Fatalf("insert users: %v", err)
	}
	if u, err := s.SelectCurrentUser(ctx); err != nil || u != nil {
		t.Fatalf("current user before flagging: %v, %v", u, err)
	}

	if err := s.InsertCurrentUser(ctx, &model.User{ID: "me", Name: "Me"}); err != nil {
		t.Fatalf("insert current: %v", err)
	}
	u, err := s.SelectCurrentUser(ctx)
	if err != nil {
		t.Fatalf("select current: %v", err)
	}
	if u == nil || u.ID != "me" {
		t.Fatalf("got %+v", u)
	}

	// A plain upsert of the same user keeps the flag.
	if err := s.InsertUsers(ctx, []*model.User{{ID: "me", Name: "Renamed"}}); err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	u, err = s.SelectCurrentUser(ctx)
	if err != nil {
		t.Fatalf("reselect current: %v", err)
	}
	if u == nil || u.Name != "Renamed" {
		t.Fatalf("got %+v", u)
	}
}

func TestReactionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &model.Reaction{MessageID: "m1", UserID: "me", Type: "like", SyncStatus: model.SyncNeeded}
	if err := s.InsertReaction(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.SelectReactionsBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != "like" {
		t.Fatalf("pending: %+v", pending)
	}

	r.SyncStatus = model.SyncCompleted
	if err := s.InsertReaction(ctx, r); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	pending, err = s.SelectReactionsBySyncStatus(ctx, model.SyncNeeded)
	if err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("still pending after upsert: %+v", pending)
	}

	if err := s.DeleteReaction(ctx, r); err != nil {
		t.Fatalf("delete: %v", err)
	}
	done, err := s.SelectReactionsBySyncStatus(ctx, model.SyncCompleted)
	if err != nil {
		t.Fatalf("select after delete: %v", err)
	}
	if len(done) != 0 {
		t.Fatalf("record survived delete: %+v", done)
	}
}

func TestDraftRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	d := &model.Draft{CID: "messaging:1", Text: "wip", UpdatedAt: now}
	if err := s.UpsertDraft(ctx, d); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	threadDraft := &model.Draft{CID: "messaging:1", ParentID: "root", Text: "reply wip", UpdatedAt: now}
	if err := s.UpsertDraft(ctx, threadDraft); err != nil {
		t.Fatalf("upsert thread draft: %v", err)
	}

	got, err := s.SelectDraft(ctx, "messaging:1", "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got == nil || got.Text != "wip" {
		t.Fatalf("got %+v", got)
	}
	got, err = s.SelectDraft(ctx, "messaging:1", "root")
	if err != nil {
		t.Fatalf("select thread draft: %v", err)
	}
	if got == nil || got.Text != "reply wip" {
		t.Fatalf("got %+v", got)
	}

	if err := s.DeleteDraft(ctx, "messaging:1", ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.SelectDraft(ctx, "messaging:1", "")
	if err != nil {
		t.Fatalf("select deleted: %v", err)
	}
	if got != nil {
		t.Fatalf("draft survived delete: %+v", got)
	}
	if got, _ := s.SelectDraft(ctx, "messaging:1", "root"); got == nil {
		t.Fatal("thread draft removed with channel draft")
	}
}

func TestSyncStateUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.SelectSyncState(ctx, "me")
	if err != nil {
		t.Fatalf("select empty: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.UpsertSyncState(ctx, &repository.SyncState{UserID: "me", LastSyncedAt: first}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err = s.SelectSyncState(ctx, "me")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got == nil || !got.LastSyncedAt.Equal(first) {
		t.Fatalf("got %+v", got)
	}
	if !got.MarkedAllReadAt.IsZero() {
		t.Fatalf("marked-all-read should be zero: %v", got.MarkedAllReadAt)
	}

	second := first.Add(time.Hour)
	if err := s.UpsertSyncState(ctx, &repository.SyncState{UserID: "me", LastSyncedAt: second, MarkedAllReadAt: first}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = s.SelectSyncState(ctx, "me")
	if err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if !got.LastSyncedAt.Equal(second) || !got.MarkedAllReadAt.Equal(first) {
		t.Fatalf("got %+v", got)
	}
}
