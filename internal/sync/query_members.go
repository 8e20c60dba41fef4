package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// QueryMembersListener backs the member-query flow: the request phase
// serves the cached member set so an offline query still answers, and the
// result phase folds the server's page back into the cache.
type QueryMembersListener struct {
	repo repository.Repository
	log  *zerolog.Logger
}

// NewQueryMembersListener builds the listener.
func NewQueryMembersListener(repo repository.Repository, logger *zerolog.Logger) *QueryMembersListener {
	return &QueryMembersListener{repo: repo, log: logger}
}

// OnQueryMembersPrecondition validates the target channel id.
func (l *QueryMembersListener) OnQueryMembersPrecondition(cid string) error {
	if _, _, err := model.SplitCid(cid); err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	return nil
}

// OnQueryMembersRequest returns the cached member set for the channel.
// An uncached channel yields an empty slice, not an error.
func (l *QueryMembersListener) OnQueryMembersRequest(ctx context.Context, cid string) ([]*model.Member, error) {
	ch, err := l.repo.SelectChannel(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("load channel %s: %w", cid, err)
	}
	if ch == nil {
		return nil, nil
	}
	members := make([]*model.Member, 0, len(ch.Members))
	for _, m := range ch.Members {
		members = append(members, m.Clone())
	}
	return members, nil
}

// OnQueryMembersResult persists a successful server page: members are
// merged into the cached channel and their users upserted. Failures leave
// the cache untouched; a member query has nothing to roll back.
func (l *QueryMembersListener) OnQueryMembersResult(ctx context.Context, cid string, members []*model.Member, callErr error) error {
	if callErr != nil {
		return nil
	}
	ch, err := l.repo.SelectChannel(ctx, cid)
	if err != nil {
		return fmt.Errorf("load channel %s: %w", cid, err)
	}
	if ch == nil {
		return nil
	}

	users := make([]*model.User, 0, len(members))
	out := ch.Clone()
	for _, m := range members {
		if m == nil || m.User == nil {
			continue
		}
		out.SetMember(m.User.ID, m)
		users = append(users, m.User)
	}
	if err := l.repo.InsertUsers(ctx, users); err != nil {
		return fmt.Errorf("persist member users: %w", err)
	}
	return l.repo.InsertChannels(ctx, []*model.Channel{out})
}
