package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// ThreadQueryListener backs the thread-replies flow: the request phase
// serves cached replies so an offline thread still renders, and the result
// phase persists the server's page.
type ThreadQueryListener struct {
	repo repository.Repository
	log  *zerolog.Logger
}

// NewThreadQueryListener builds the listener.
func NewThreadQueryListener(repo repository.Repository, logger *zerolog.Logger) *ThreadQueryListener {
	return &ThreadQueryListener{repo: repo, log: logger}
}

// OnGetRepliesPrecondition validates the thread root id.
func (l *ThreadQueryListener) OnGetRepliesPrecondition(parentID string) error {
	if parentID == "" {
		return fmt.Errorf("get replies: missing parent message id")
	}
	return nil
}

// OnGetRepliesRequest returns cached replies for the thread, oldest first.
// The parent message's channel bounds the scan; an unknown parent yields
// an empty slice.
func (l *ThreadQueryListener) OnGetRepliesRequest(ctx context.Context, parentID string, limit int) ([]*model.Message, error) {
	parent, err := l.repo.SelectMessage(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("load parent message %s: %w", parentID, err)
	}
	if parent == nil {
		return nil, nil
	}

	// The channel scan over-fetches; replies are filtered by parent here.
	candidates, err := l.repo.SelectMessagesForChannel(ctx, parent.CID, 0)
	if err != nil {
		return nil, fmt.Errorf("load channel messages %s: %w", parent.CID, err)
	}
	replies := make([]*model.Message, 0, len(candidates))
	for _, msg := range candidates {
		if msg.ParentID == parentID {
			replies = append(replies, msg)
		}
	}
	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].CreatedAt.Before(replies[j].CreatedAt)
	})
	if limit > 0 && len(replies) > limit {
		replies = replies[len(replies)-limit:]
	}
	return replies, nil
}

// OnGetRepliesResult persists a successful server page of replies.
// Failures leave the cache untouched.
func (l *ThreadQueryListener) OnGetRepliesResult(ctx context.Context, replies []*model.Message, callErr error) error {
	if callErr != nil || len(replies) == 0 {
		return nil
	}
	users := make([]*model.User, 0, len(replies))
	for _, msg := range replies {
		if msg.User != nil {
			users = append(users, msg.User)
		}
	}
	if err := l.repo.InsertUsers(ctx, users); err != nil {
		return fmt.Errorf("persist reply users: %w", err)
	}
	return l.repo.InsertMessages(ctx, replies, false)
}
