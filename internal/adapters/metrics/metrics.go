// Package metrics exposes Prometheus metrics for instance fetches and cache
// lookups.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"misskey-comments/internal/domain"
)

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
}

// New creates the collectors, including the Go runtime and process ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "misskey_comments_fetches_total",
			Help: "Requests to Misskey instances by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "misskey_comments_fetch_duration_seconds",
			Help:    "Latency of requests to Misskey instances.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "misskey_comments_cache_lookups_total",
			Help: "Cache lookups by backend, kind and result.",
		}, []string{"backend", "kind", "result"}),
	}
	m.registry.MustRegister(
		m.fetches,
		m.fetchDuration,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CountLogDrops exports the number of log entries lost to a full buffer,
// read from dropped at scrape time.
func (m *Metrics) CountLogDrops(dropped func() int64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "misskey_comments_log_dropped_total",
		Help: "Log entries dropped because the writer fell behind.",
	}, func() float64 {
		return float64(dropped())
	}))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoteNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// NoteSource mirrors the fetch interface of the use cases.
type NoteSource interface {
	ShowNote(ctx context.Context, host, noteID string) (*domain.Note, error)
	Replies(ctx context.Context, host, noteID string, limit int) ([]domain.Note, error)
}

// Source counts and times the requests of a NoteSource.
type Source struct {
	next NoteSource
	m    *Metrics
}

// InstrumentSource wraps next.
func (m *Metrics) InstrumentSource(next NoteSource) *Source {
	return &Source{next: next, m: m}
}

func (s *Source) ShowNote(ctx context.Context, host, noteID string) (*domain.Note, error) {
	start := time.Now()
	note, err := s.next.ShowNote(ctx, host, noteID)
	s.observe("show", start, err)
	return note, err
}

func (s *Source) Replies(ctx context.Context, host, noteID string, limit int) ([]domain.Note, error) {
	start := time.Now()
	notes, err := s.next.Replies(ctx, host, noteID, limit)
	s.observe("replies", start, err)
	return notes, err
}

func (s *Source) observe(endpoint string, start time.Time, err error) {
	s.m.fetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	s.m.fetches.WithLabelValues(endpoint, outcome(err)).Inc()
}

// NoteCache mirrors the cache interface of the use cases.
type NoteCache interface {
	GetNote(ctx context.Context, host, noteID string) (*domain.Note, bool)
	SetNote(ctx context.Context, host, noteID string, note *domain.Note)
	GetReplies(ctx context.Context, host, noteID string) ([]domain.Note, bool)
	SetReplies(ctx context.Context, host, noteID string, replies []domain.Note)
}

// Cache counts hits and misses of a NoteCache.
type Cache struct {
	next    NoteCache
	backend string
	m       *Metrics
}

// InstrumentCache wraps next, labelling lookups with backend.
func (m *Metrics) InstrumentCache(next NoteCache, backend string) *Cache {
	return &Cache{next: next, backend: backend, m: m}
}

func (c *Cache) GetNote(ctx context.Context, host, noteID string) (*domain.Note, bool) {
	note, found := c.next.GetNote(ctx, host, noteID)
	c.record("note", found)
	return note, found
}

func (c *Cache) SetNote(ctx context.Context, host, noteID string, note *domain.Note) {
	c.next.SetNote(ctx, host, noteID, note)
}

func (c *Cache) GetReplies(ctx context.Context, host, noteID string) ([]domain.Note, bool) {
	replies, found := c.next.GetReplies(ctx, host, noteID)
	c.record("replies", found)
	return replies, found
}

func (c *Cache) SetReplies(ctx context.Context, host, noteID string, replies []domain.Note) {
	c.next.SetReplies(ctx, host, noteID, replies)
}

func (c *Cache) record(kind string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	c.m.cacheLookups.WithLabelValues(c.backend, kind, result).Inc()
}
