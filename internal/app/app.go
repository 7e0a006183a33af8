// Package app builds the adapters and use cases described by a Config.
package app

import (
	"errors"

	"misskey-comments/internal/adapters/cache"
	"misskey-comments/internal/adapters/markup"
	"misskey-comments/internal/adapters/metrics"
	"misskey-comments/internal/adapters/misskey"
	"misskey-comments/internal/adapters/sanitize"
	"misskey-comments/internal/config"
	"misskey-comments/internal/domain"
	"misskey-comments/internal/usecases"
	"misskey-comments/internal/widget"
	"misskey-comments/pkg/log"
	"misskey-comments/templates/components"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Stats    *usecases.GetStatsUseCase
	Thread   *usecases.GetThreadUseCase
	Content  markup.Renderer
	Renderer *components.Renderer

	closers []func() error
}

type closingCache interface {
	usecases.NoteCache
	Close() error
}

// New wires the application. A Redis cache that cannot be reached is
// replaced by the in-memory one.
func New(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	content, err := markup.New(cfg.Render.ContentFormat)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Metrics: metrics.New(), Content: content}
	// the default logger may be replaced after wiring
	a.Metrics.CountLogDrops(func() int64 { return log.Default().DroppedCount() })

	store, backend := newCache(cfg.Cache)
	a.closers = append(a.closers, store.Close)
	noteCache := a.Metrics.InstrumentCache(store, backend)

	client := misskey.NewClient(misskey.Options{
		Scheme:      cfg.Remote.Scheme,
		Timeout:     cfg.Remote.Timeout,
		UserAgent:   cfg.Remote.UserAgent,
		Descendants: cfg.Remote.RepliesEndpoint == "children",
		PublicOnly:  !cfg.Remote.AllowPrivateHosts,
	})
	source := a.Metrics.InstrumentSource(client)

	a.Stats = usecases.NewGetStatsUseCase(noteCache, source)
	a.Thread = usecases.NewGetThreadUseCase(noteCache, source, cfg.Remote.Limit)

	opts := components.Options{Location: loc, Content: content}
	if cfg.Render.Sanitize {
		opts.Sanitizer = sanitize.New()
	}
	a.Renderer = components.NewRenderer(opts)

	log.GlobalInfo("app wired",
		"cache", backend,
		"replies_endpoint", cfg.Remote.RepliesEndpoint,
		"content_format", cfg.Render.ContentFormat,
		"sanitize", cfg.Render.Sanitize,
	)
	return a, nil
}

func newCache(cfg config.Cache) (closingCache, string) {
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.RedisPrefix, cfg.TTL)
		if err == nil {
			return redisCache, "redis"
		}
		log.GlobalWarn("redis unavailable, using in-memory cache", "error", err)
	}
	return cache.NewMemoryCache(cfg.TTL), "memory"
}

// Widget returns a widget for the given post, ready to be made visible.
func (a *App) Widget(target domain.Target, style string) *widget.Widget {
	return widget.New(widget.Config{Target: target, Title: a.Config.Render.Title, Style: style},
		a.Stats, a.Thread, a.Renderer)
}

// Close releases the cache connections.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
