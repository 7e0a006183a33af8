package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"misskey-comments/pkg/log"
	"misskey-comments/templates/components"
)

// ErrProbeFailed is returned when the hosting page could not be driven.
var ErrProbeFailed = errors.New("embed probe failed")

// Outcome is the state the comment list settled in.
type Outcome string

const (
	OutcomeComments   Outcome = "comments"
	OutcomeNoComments Outcome = "no-comments"
	OutcomeError      Outcome = "error"
	// OutcomePending means the list was still waiting when the probe gave up.
	OutcomePending Outcome = "pending"
)

// Result describes what a reader scrolling to the widget would see.
type Result struct {
	URL      string
	Outcome  Outcome
	Comments int // rendered comments, nested ones included
	Stats    bool
	Elapsed  time.Duration
}

// Loaded reports whether the list reached its final state.
func (r Result) Loaded() bool {
	return r.Outcome == OutcomeComments || r.Outcome == OutcomeNoComments
}

// TabRunner runs browser work in a tab.
type TabRunner interface {
	WithTab(ctx context.Context, fn func(tabCtx context.Context) error) error
}

// Prober loads a page that embeds the widget, scrolls the comment list into
// view and waits for it to settle.
type Prober struct {
	tabs    TabRunner
	timeout time.Duration
}

// NewProber creates a Prober. timeout bounds the wait for the list once it
// is in view; zero means 15 seconds.
func NewProber(tabs TabRunner, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{tabs: tabs, timeout: timeout}
}

var listSelector = "#" + components.ListID

// settledJS is truthy once the list has been replaced by a loaded one or
// shows the error notice.
var settledJS = fmt.Sprintf(`(() => {
	const list = document.querySelector(%q);
	if (!list) return false;
	return !list.hasAttribute("hx-trigger") || list.textContent.includes(%q);
})()`, listSelector, components.LoadErrorText)

var snapshotJS = fmt.Sprintf(`(() => {
	const list = document.querySelector(%q);
	const stats = document.querySelector(%q);
	return {
		found: !!list,
		armed: !!list && list.hasAttribute("hx-trigger"),
		items: list ? list.querySelectorAll("li").length : 0,
		text: list ? list.textContent : "",
		stats: !!stats && stats.children.length > 0,
	};
})()`, listSelector, "#"+components.StatsID)

// snapshot is the page state read after waiting.
type snapshot struct {
	Found bool   `json:"found"`
	Armed bool   `json:"armed"`
	Items int    `json:"items"`
	Text  string `json:"text"`
	Stats bool   `json:"stats"`
}

// Probe opens pageURL and reports how the widget loaded. A list that did not
// settle in time is reported as pending, not as an error.
func (p *Prober) Probe(ctx context.Context, pageURL string) (Result, error) {
	started := time.Now()
	var snap snapshot

	err := p.tabs.WithTab(ctx, func(tabCtx context.Context) error {
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady(listSelector, chromedp.ByQuery),
			chromedp.ScrollIntoView(listSelector, chromedp.ByQuery),
		); err != nil {
			return err
		}

		// A polling timeout leaves the list armed; the snapshot reports it.
		var settled bool
		if err := chromedp.Run(tabCtx,
			chromedp.Poll(settledJS, &settled, chromedp.WithPollingTimeout(p.timeout)),
		); err != nil {
			if tabCtx.Err() != nil {
				return err
			}
			log.GlobalDebugCtx(ctx, "embed probe: list did not settle", "url", pageURL, "error", err)
		}

		return chromedp.Run(tabCtx, chromedp.Evaluate(snapshotJS, &snap))
	})
	if err != nil {
		log.GlobalWarnCtx(ctx, "embed probe failed", "url", pageURL, "error", err)
		return Result{}, fmt.Errorf("%w: %s: %v", ErrProbeFailed, pageURL, err)
	}

	result := summarize(snap)
	result.URL = pageURL
	result.Elapsed = time.Since(started)
	log.GlobalInfoCtx(ctx, "embed probed", "url", pageURL, "outcome", string(result.Outcome), "comments", result.Comments, "elapsed_ms", result.Elapsed.Milliseconds())
	return result, nil
}

func summarize(s snapshot) Result {
	r := Result{Comments: s.Items, Stats: s.Stats}
	switch {
	case !s.Found:
		r.Outcome = OutcomePending
	case strings.Contains(s.Text, components.LoadErrorText):
		r.Outcome = OutcomeError
	case s.Armed:
		r.Outcome = OutcomePending
	case s.Items > 0:
		r.Outcome = OutcomeComments
	default:
		r.Outcome = OutcomeNoComments
	}
	return r
}
