package widget_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"misskey-comments/internal/domain"
	"misskey-comments/internal/thread"
	"misskey-comments/internal/widget"
	"misskey-comments/templates/components"
)

type stubStats struct {
	stats domain.Stats
	err   error
	calls atomic.Int32
}

func (s *stubStats) Execute(ctx context.Context, target domain.Target) (domain.Stats, error) {
	s.calls.Add(1)
	return s.stats, s.err
}

type stubThread struct {
	mu    sync.Mutex
	notes []domain.Note
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubThread) Execute(ctx context.Context, target domain.Target) (*thread.Tree, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return thread.Build(s.notes, target.NoteID), nil
}

func (s *stubThread) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

var target = domain.Target{Host: "misskey.example", NoteID: "root"}

func newWidget(stats *stubStats, th *stubThread) *widget.Widget {
	return widget.New(widget.Config{Target: target}, stats, th, components.NewRenderer(components.Options{}))
}

func TestWidget_New_ShowsLoadingNotice(t *testing.T) {
	w := newWidget(&stubStats{}, &stubThread{})

	if got := w.Surface().List; got != components.LoadingText {
		t.Errorf("List: got %q", got)
	}
	if w.Loaded() {
		t.Error("new widget must not be loaded")
	}
}

func TestWidget_OnVisible_FillsBothRegions(t *testing.T) {
	// Arrange
	stats := &stubStats{stats: domain.Note{ID: "root", RepliesCount: 1}.Stats()}
	th := &stubThread{notes: []domain.Note{{ID: "a", ReplyID: "root", Text: "hi"}}}
	w := newWidget(stats, th)

	// Act
	ran := w.OnVisible(context.Background())

	// Assert
	if !ran {
		t.Fatal("expected a load cycle")
	}
	s := w.Surface()
	if !strings.Contains(s.Stats, `<div class="replies active">`) {
		t.Errorf("Stats: got %s", s.Stats)
	}
	if !strings.HasPrefix(s.List, `<li id="a">`) {
		t.Errorf("List: got %s", s.List)
	}
	if !w.Loaded() {
		t.Error("expected loaded")
	}
}

func TestWidget_OnVisible_EmptyReplies_ShowsNoComments(t *testing.T) {
	w := newWidget(&stubStats{}, &stubThread{})

	w.OnVisible(context.Background())

	if got := w.Surface().List; got != "<p>No comments found</p>" {
		t.Errorf("List: got %q", got)
	}
	if !w.Loaded() {
		t.Error("an empty result still completes loading")
	}
}

func TestWidget_OnVisible_RepliesFailure_ShowsErrorAndAllowsRetry(t *testing.T) {
	// Arrange
	th := &stubThread{err: domain.ErrFetchFailed}
	w := newWidget(&stubStats{}, th)

	// Act
	w.OnVisible(context.Background())

	// Assert
	if got := w.Surface().List; got != "<p>Error loading comments from Misskey.</p>" {
		t.Errorf("List: got %q", got)
	}
	if w.Loaded() {
		t.Fatal("failed load must leave the widget unloaded")
	}

	// Act: the next visibility trigger retries
	th.setErr(nil)
	ran := w.OnVisible(context.Background())

	// Assert
	if !ran || !w.Loaded() {
		t.Error("retry should load the widget")
	}
	if th.calls.Load() != 2 {
		t.Errorf("thread calls: got %d, want 2", th.calls.Load())
	}
}

func TestWidget_OnVisible_StatsFailure_LeavesListAlone(t *testing.T) {
	stats := &stubStats{err: domain.ErrFetchFailed}
	th := &stubThread{notes: []domain.Note{{ID: "a"}}}
	w := newWidget(stats, th)

	w.OnVisible(context.Background())

	s := w.Surface()
	if s.Stats != "" {
		t.Errorf("Stats: got %q, want empty", s.Stats)
	}
	if !strings.Contains(s.List, `<li id="a">`) || !w.Loaded() {
		t.Errorf("list should load regardless of stats: %s", s.List)
	}
}

func TestWidget_OnVisible_AfterLoad_IsIgnored(t *testing.T) {
	stats := &stubStats{}
	th := &stubThread{notes: []domain.Note{{ID: "a"}}}
	w := newWidget(stats, th)

	w.OnVisible(context.Background())
	ran := w.OnVisible(context.Background())

	if ran {
		t.Error("loaded widget must ignore visibility triggers")
	}
	if th.calls.Load() != 1 || stats.calls.Load() != 1 {
		t.Errorf("calls: thread=%d stats=%d, want 1 each", th.calls.Load(), stats.calls.Load())
	}
}

func TestWidget_OnVisible_ConcurrentTriggers_RunOneCycle(t *testing.T) {
	th := &stubThread{notes: []domain.Note{{ID: "a"}}, delay: 50 * time.Millisecond}
	w := newWidget(&stubStats{}, th)

	var wg sync.WaitGroup
	var cycles atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.OnVisible(context.Background()) {
				cycles.Add(1)
			}
		}()
	}
	wg.Wait()

	if cycles.Load() != 1 {
		t.Errorf("cycles: got %d, want 1", cycles.Load())
	}
	if th.calls.Load() != 1 {
		t.Errorf("thread calls: got %d, want 1", th.calls.Load())
	}
}

func TestWidget_Render_ProducesStaticWidget(t *testing.T) {
	w := widget.New(
		widget.Config{Target: target, Title: "Comments", Style: "max-width: 40em"},
		&stubStats{stats: domain.Stats{NoteID: "root"}},
		&stubThread{notes: []domain.Note{{ID: "a"}}},
		components.NewRenderer(components.Options{}),
	)

	out, err := w.Render(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		`<ul id="misskey-comments-list" style="max-width: 40em"><li id="a">`,
		`href="https://misskey.example/notes/root" rel="ugc">post</a>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, "hx-") {
		t.Error("rendered widget must not carry triggers")
	}
}
