package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
)

// DraftMessageListener handles draft persistence. Drafts are local-first:
// the cache copy is authoritative until a server round trip succeeds, and
// a failed round trip never discards what the user typed.
type DraftMessageListener struct {
	repo repository.Repository
	log  *zerolog.Logger
}

// NewDraftMessageListener builds the listener.
func NewDraftMessageListener(repo repository.Repository, logger *zerolog.Logger) *DraftMessageListener {
	return &DraftMessageListener{repo: repo, log: logger}
}

// OnUpdateDraftPrecondition validates the draft's target channel.
func (l *DraftMessageListener) OnUpdateDraftPrecondition(draft *model.Draft) error {
	if draft == nil {
		return fmt.Errorf("update draft: missing draft")
	}
	if _, _, err := model.SplitCid(draft.CID); err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	return nil
}

// OnUpdateDraftRequest saves the draft locally before the network call.
func (l *DraftMessageListener) OnUpdateDraftRequest(ctx context.Context, draft *model.Draft) error {
	d := *draft
	d.UpdatedAt = time.Now()
	return l.repo.UpsertDraft(ctx, &d)
}

// OnUpdateDraftResult folds the server's copy back in on success. On
// failure the local draft stays as written.
func (l *DraftMessageListener) OnUpdateDraftResult(ctx context.Context, result *model.Draft, callErr error) error {
	if callErr != nil || result == nil {
		return nil
	}
	return l.repo.UpsertDraft(ctx, result)
}

// OnDeleteDraftRequest removes the draft locally before the network call.
func (l *DraftMessageListener) OnDeleteDraftRequest(ctx context.Context, cid, parentID string) error {
	return l.repo.DeleteDraft(ctx, cid, parentID)
}

// OnDeleteDraftResult is a no-op on success; on failure the deletion is
// kept local, matching the user's intent over the server's state.
func (l *DraftMessageListener) OnDeleteDraftResult(ctx context.Context, cid, parentID string, callErr error) error {
	if callErr != nil {
		l.log.Debug().Str("cid", cid).Str("parent_id", parentID).Err(callErr).Msg("draft delete not confirmed, kept local")
	}
	return nil
}
