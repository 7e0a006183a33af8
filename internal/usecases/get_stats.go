package usecases

import (
	"context"

	"golang.org/x/sync/singleflight"

	"misskey-comments/internal/domain"
	"misskey-comments/pkg/log"
)

// NoteSource defines the interface for fetching notes from an instance.
type NoteSource interface {
	ShowNote(ctx context.Context, host, noteID string) (*domain.Note, error)
	Replies(ctx context.Context, host, noteID string, limit int) ([]domain.Note, error)
}

// NoteCache defines the interface for caching notes and reply lists.
type NoteCache interface {
	GetNote(ctx context.Context, host, noteID string) (*domain.Note, bool)
	SetNote(ctx context.Context, host, noteID string, note *domain.Note)
	GetReplies(ctx context.Context, host, noteID string) ([]domain.Note, bool)
	SetReplies(ctx context.Context, host, noteID string, replies []domain.Note)
}

// GetStatsUseCase retrieves the stats line of a post with a cache-first
// strategy.
type GetStatsUseCase struct {
	cache  NoteCache
	source NoteSource
	group  singleflight.Group
}

// NewGetStatsUseCase creates a new GetStatsUseCase.
func NewGetStatsUseCase(cache NoteCache, source NoteSource) *GetStatsUseCase {
	return &GetStatsUseCase{cache: cache, source: source}
}

// Execute returns the stats of the target post.
func (uc *GetStatsUseCase) Execute(ctx context.Context, target domain.Target) (domain.Stats, error) {
	note, err := uc.note(ctx, target)
	if err != nil {
		return domain.Stats{}, err
	}
	return note.Stats(), nil
}

func (uc *GetStatsUseCase) note(ctx context.Context, target domain.Target) (*domain.Note, error) {
	if note, found := uc.cache.GetNote(ctx, target.Host, target.NoteID); found {
		log.GlobalDebugCtx(ctx, "cache hit", "kind", "note", "host", target.Host, "note_id", target.NoteID)
		return note, nil
	}

	log.GlobalDebugCtx(ctx, "cache miss, fetching", "kind", "note", "host", target.Host, "note_id", target.NoteID)

	// Concurrent loads of the same post share one request. The shared fetch
	// and its cache write must outlive any single caller's cancellation.
	result, err, shared := uc.group.Do(target.Host+"/"+target.NoteID, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		note, err := uc.source.ShowNote(fetchCtx, target.Host, target.NoteID)
		if err != nil {
			return nil, err
		}
		uc.cache.SetNote(fetchCtx, target.Host, target.NoteID, note)
		return note, nil
	})
	if shared {
		log.GlobalDebugCtx(ctx, "singleflight: shared note fetch", "note_id", target.NoteID)
	}
	if err != nil {
		return nil, err
	}
	return result.(*domain.Note), nil
}
