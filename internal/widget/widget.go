// Package widget models one embedded comments widget: two independent
// regions filled by concurrent fetches once the widget becomes visible.
package widget

import (
	"bytes"
	"context"
	"sync"

	"github.com/a-h/templ"

	"misskey-comments/internal/domain"
	"misskey-comments/internal/thread"
	"misskey-comments/pkg/log"
	"misskey-comments/templates/components"
)

// StatsLoader loads the stats line of a post.
type StatsLoader interface {
	Execute(ctx context.Context, target domain.Target) (domain.Stats, error)
}

// ThreadLoader loads the reply tree of a post.
type ThreadLoader interface {
	Execute(ctx context.Context, target domain.Target) (*thread.Tree, error)
}

// Config describes the embedded instance.
type Config struct {
	Target domain.Target
	Title  string
	Style  string // inline style of the comment list
}

// Surface is the rendered content of the two regions.
type Surface struct {
	Stats string
	List  string
}

// Widget is one embedded instance. It is safe for concurrent use.
type Widget struct {
	cfg      Config
	stats    StatsLoader
	thread   ThreadLoader
	renderer *components.Renderer

	mu      sync.Mutex
	loaded  bool
	loading bool
	surface Surface
}

// New creates a widget showing the loading notice in its list.
func New(cfg Config, stats StatsLoader, thread ThreadLoader, renderer *components.Renderer) *Widget {
	return &Widget{
		cfg:      cfg,
		stats:    stats,
		thread:   thread,
		renderer: renderer,
		surface:  Surface{List: components.LoadingText},
	}
}

// OnVisible runs one load cycle: stats and replies are fetched
// concurrently and each writes only its own region. It returns false
// without fetching when the widget is already loaded or a cycle is in
// flight. A failed replies fetch leaves the widget unloaded so that the
// next call retries.
func (w *Widget) OnVisible(ctx context.Context) bool {
	w.mu.Lock()
	if w.loaded || w.loading {
		w.mu.Unlock()
		return false
	}
	w.loading = true
	w.surface.List = components.LoadingText
	w.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.loadStats(ctx)
	}()
	go func() {
		defer wg.Done()
		w.loadList(ctx)
	}()
	wg.Wait()

	w.mu.Lock()
	w.loading = false
	w.mu.Unlock()
	return true
}

func (w *Widget) loadStats(ctx context.Context) {
	target := w.cfg.Target
	stats, err := w.stats.Execute(ctx, target)
	if err != nil {
		// the stats region stays as it was; the list is unaffected
		log.GlobalWarnCtx(ctx, "loading stats failed", "host", target.Host, "note_id", target.NoteID, "error", err)
		return
	}
	html := renderString(ctx, components.Stats(target.Host, stats))

	w.mu.Lock()
	w.surface.Stats = html
	w.mu.Unlock()
}

func (w *Widget) loadList(ctx context.Context) {
	target := w.cfg.Target
	tree, err := w.thread.Execute(ctx, target)
	if err != nil {
		log.GlobalErrorCtx(ctx, "loading comments failed", "host", target.Host, "note_id", target.NoteID, "error", err)
		html := renderString(ctx, components.LoadError())
		w.mu.Lock()
		w.surface.List = html
		w.mu.Unlock()
		return
	}

	html := renderString(ctx, w.renderer.Thread(target.Host, tree))
	w.mu.Lock()
	w.surface.List = html
	w.loaded = true
	w.mu.Unlock()
}

// Loaded reports whether the comments were loaded.
func (w *Widget) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// Surface returns the current content of the regions.
func (w *Widget) Surface() Surface {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.surface
}

// Component renders the widget with its current surface.
func (w *Widget) Component() templ.Component {
	s := w.Surface()
	return components.Widget(components.WidgetView{
		Title:   w.cfg.Title,
		NoteURL: w.cfg.Target.NoteURL(),
		Style:   w.cfg.Style,
		Stats:   templ.Raw(s.Stats),
		List:    templ.Raw(s.List),
	})
}

// Render loads the widget if needed and returns its full markup.
func (w *Widget) Render(ctx context.Context) (string, error) {
	w.OnVisible(ctx)
	var buf bytes.Buffer
	if err := w.Component().Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderString(ctx context.Context, c templ.Component) string {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		log.GlobalErrorCtx(ctx, "render failed", "error", err)
	}
	return buf.String()
}
