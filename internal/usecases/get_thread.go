package usecases

import (
	"context"

	"golang.org/x/sync/singleflight"

	"misskey-comments/internal/domain"
	"misskey-comments/internal/thread"
	"misskey-comments/pkg/log"
)

// GetThreadUseCase retrieves the replies of a post and rebuilds their tree.
type GetThreadUseCase struct {
	cache  NoteCache
	source NoteSource
	limit  int
	group  singleflight.Group
}

// NewGetThreadUseCase creates a new GetThreadUseCase fetching up to limit
// replies per post.
func NewGetThreadUseCase(cache NoteCache, source NoteSource, limit int) *GetThreadUseCase {
	return &GetThreadUseCase{cache: cache, source: source, limit: limit}
}

// Execute returns the reply tree of the target post. An empty tree means
// the post has no replies.
func (uc *GetThreadUseCase) Execute(ctx context.Context, target domain.Target) (*thread.Tree, error) {
	replies, err := uc.replies(ctx, target)
	if err != nil {
		return nil, err
	}

	tree := thread.Build(replies, target.NoteID)
	if tree.Detached > 0 {
		log.GlobalDebugCtx(ctx, "replies with unresolved parent placed at top level",
			"note_id", target.NoteID, "count", tree.Detached)
	}
	return tree, nil
}

func (uc *GetThreadUseCase) replies(ctx context.Context, target domain.Target) ([]domain.Note, error) {
	if replies, found := uc.cache.GetReplies(ctx, target.Host, target.NoteID); found {
		log.GlobalDebugCtx(ctx, "cache hit", "kind", "replies", "host", target.Host, "note_id", target.NoteID)
		return replies, nil
	}

	log.GlobalDebugCtx(ctx, "cache miss, fetching", "kind", "replies", "host", target.Host, "note_id", target.NoteID)

	result, err, shared := uc.group.Do(target.Host+"/"+target.NoteID, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		replies, err := uc.source.Replies(fetchCtx, target.Host, target.NoteID, uc.limit)
		if err != nil {
			return nil, err
		}
		uc.cache.SetReplies(fetchCtx, target.Host, target.NoteID, replies)
		return replies, nil
	})
	if shared {
		log.GlobalDebugCtx(ctx, "singleflight: shared replies fetch", "note_id", target.NoteID)
	}
	if err != nil {
		return nil, err
	}
	return result.([]domain.Note), nil
}
