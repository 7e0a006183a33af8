// Package browser drives a headless Chrome to check how the widget behaves
// on a hosting page.
package browser

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"

	"misskey-comments/pkg/log"
)

// Options configures a Pool.
type Options struct {
	// ChromePath is an explicit Chrome/Chromium binary. Empty uses the one
	// found on PATH.
	ChromePath string
	// RemoteURL connects to an already running browser over its DevTools
	// websocket instead of starting one.
	RemoteURL string
	// Tabs is the number of tabs that may be open at once. Defaults to 1.
	Tabs int
}

// Pool manages a single Chrome process and bounds the number of open tabs.
type Pool struct {
	opts      Options
	allocOpts []chromedp.ExecAllocatorOption

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	tabs slots
}

// NewPool starts Chrome, or connects to RemoteURL, and returns the pool.
func NewPool(opts Options) (*Pool, error) {
	if opts.Tabs < 1 {
		opts.Tabs = 1
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-features", "Translate,BackForwardCache"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(1280, 800),
	)
	if opts.ChromePath != "" {
		log.GlobalInfo("browser pool using custom chrome path", "path", opts.ChromePath)
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	p := &Pool{
		opts:      opts,
		allocOpts: allocOpts,
		tabs:      newSlots(opts.Tabs),
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

// start launches or reconnects the browser, dropping the previous one.
func (p *Pool) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if p.opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), p.opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), p.allocOpts...)
	}
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Force browser startup
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return err
	}

	p.ctx = ctx
	p.cancel = func() {
		cancel()
		allocCancel()
	}

	log.GlobalInfo("browser pool chrome started", "remote", p.opts.RemoteURL != "")
	return nil
}

// WithTab runs fn with a fresh tab. It waits for a free slot unless ctx ends
// first. The tab is closed when fn returns and is bound to ctx.
func (p *Pool) WithTab(ctx context.Context, fn func(tabCtx context.Context) error) error {
	if err := p.tabs.acquire(ctx); err != nil {
		return err
	}
	defer p.tabs.release()

	tabCtx, tabCancel, err := p.acquireTab()
	if err != nil {
		return err
	}
	defer tabCancel()

	// End the tab with the caller.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	return fn(tabCtx)
}

// acquireTab opens a tab and checks it works, restarting the browser once if
// it does not.
func (p *Pool) acquireTab() (context.Context, context.CancelFunc, error) {
	p.mu.Lock()
	tabCtx, tabCancel := chromedp.NewContext(p.ctx)
	p.mu.Unlock()

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		log.GlobalWarn("browser pool tab failed, restarting chrome", "error", err)

		if restartErr := p.start(); restartErr != nil {
			return nil, nil, restartErr
		}

		p.mu.Lock()
		tabCtx, tabCancel = chromedp.NewContext(p.ctx)
		p.mu.Unlock()
	}
	return tabCtx, tabCancel, nil
}

// Close shuts down the browser.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		log.GlobalInfo("browser pool chrome stopped")
	}
}

// slots is a counting semaphore for open tabs.
type slots chan struct{}

func newSlots(n int) slots {
	return make(slots, n)
}

func (s slots) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s slots) release() {
	<-s
}
