// Package components renders the parts of the comments widget: the stats
// line, the nested comment list and the notices shown in its place.
package components

//go:generate templ generate

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"

	"misskey-comments/internal/adapters/markup"
	"misskey-comments/internal/domain"
	"misskey-comments/pkg/log"
)

// ContentRenderer renders the text of a note as HTML.
type ContentRenderer interface {
	Render(text string) string
}

// Sanitizer cleans a rendered comment before it is embedded.
type Sanitizer interface {
	Sanitize(html string) string
}

// Options configures a Renderer.
type Options struct {
	Location *time.Location  // dates; UTC when nil
	Content  ContentRenderer // plain text when nil
	// Sanitizer is applied to every comment article. Without one the
	// markup is embedded as rendered.
	Sanitizer Sanitizer
}

// Renderer renders notes of any instance into widget markup.
type Renderer struct {
	loc       *time.Location
	content   ContentRenderer
	sanitizer Sanitizer
	warnOnce  sync.Once
}

// NewRenderer creates a Renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Content == nil {
		opts.Content = markup.Plain{}
	}
	return &Renderer{loc: opts.Location, content: opts.Content, sanitizer: opts.Sanitizer}
}

// sanitizedArticle renders the article of one note and passes it through
// the sanitizer before writing it.
func (r *Renderer) sanitizedArticle(host string, note domain.Note) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		err := article(host, note, FormatDate(note.CreatedAt, r.loc), r.content.Render(note.Text)).Render(ctx, &b)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, r.sanitize(ctx, b.String()))
		return err
	})
}

func (r *Renderer) sanitize(ctx context.Context, html string) string {
	if r.sanitizer == nil {
		r.warnOnce.Do(func() {
			log.GlobalWarnCtx(ctx, "no sanitizer configured, embedding comments unsanitized")
		})
		return html
	}
	return r.sanitizer.Sanitize(html)
}

// Dates are shown as YYYY-MM-DD HH:MM, 24h.
const dateLayout = "2006-01-02 15:04"

// FormatDate formats an ISO-8601 timestamp in loc. Input that does not
// parse is returned unchanged.
func FormatDate(raw string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// safeURL replaces URLs with unsafe schemes for attributes other than href.
func safeURL(u string) string {
	return string(templ.URL(u))
}
