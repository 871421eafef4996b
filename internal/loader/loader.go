// Package loader turns the product table into a cached, immutable Dataset.
package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"zepto-analytics/internal/model"
	"zepto-analytics/internal/repository"
	"zepto-analytics/internal/telemetry"
	"zepto-analytics/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("dataset-loader")

// Entry is the single cached dataset.
type Entry struct {
	LoadedAt time.Time
	Dataset  *model.Dataset
}

// Info describes the cache for operators.
type Info struct {
	Loaded        bool      `json:"loaded"`
	DatasetID     string    `json:"dataset_id,omitempty"`
	Source        string    `json:"source"`
	LoadedAt      time.Time `json:"loaded_at,omitempty"`
	AgeSeconds    float64   `json:"age_seconds"`
	TTLSeconds    float64   `json:"ttl_seconds"`
	Rows          int       `json:"rows"`
	Rejected      int       `json:"rejected"`
	InvalidWeight int       `json:"invalid_weight"`
}

// Loader serves the dataset from an explicit cache and loads it from the
// repository on a cold start, after Invalidate, or once the TTL has passed.
// Concurrent callers during a load wait for and share that load.
type Loader struct {
	repo    repository.ProductRepository
	ttl     time.Duration
	metrics *telemetry.Metrics
	now     func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	entry      *Entry
	generation uint64
}

type Option func(*Loader)

// WithTTL bounds the cache window. Zero, the default, never expires.
func WithTTL(ttl time.Duration) Option {
	return func(l *Loader) { l.ttl = ttl }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

func New(repo repository.ProductRepository, opts ...Option) *Loader {
	l := &Loader{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

const loadKey = "dataset"

// Load returns the cached dataset, loading it first if needed.
func (l *Loader) Load(ctx context.Context) (*model.Dataset, error) {
	if ds, ok := l.cached(); ok {
		l.metrics.CacheHit()
		return ds, nil
	}
	l.metrics.CacheMiss()

	// The shared load must not die with whichever caller happened to start it;
	// connect and query timeouts bound it instead.
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(loadKey, func() (interface{}, error) {
		return l.load(loadCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Dataset), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached dataset. A load already in flight still answers
// its waiters but is not stored.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.entry = nil
	l.generation++
	l.mu.Unlock()
	l.group.Forget(loadKey)
	logger.Logger.Info().Str("source", l.repo.Table()).Msg("Dataset cache invalidated")
}

// Refresh invalidates the cache and loads a fresh dataset.
func (l *Loader) Refresh(ctx context.Context) (*model.Dataset, error) {
	l.Invalidate()
	return l.Load(ctx)
}

// Entry returns the current cache entry, or nil when nothing is cached.
func (l *Loader) Entry() *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.entry == nil {
		return nil
	}
	e := *l.entry
	return &e
}

func (l *Loader) Info() Info {
	info := Info{Source: l.repo.Table(), TTLSeconds: l.ttl.Seconds()}
	e := l.Entry()
	if e == nil {
		return info
	}
	info.Loaded = true
	info.DatasetID = e.Dataset.ID.String()
	info.LoadedAt = e.LoadedAt
	info.AgeSeconds = l.now().Sub(e.LoadedAt).Seconds()
	info.Rows = e.Dataset.Len()
	info.Rejected = len(e.Dataset.Rejected)
	info.InvalidWeight = e.Dataset.InvalidWeight
	return info
}

func (l *Loader) cached() (*model.Dataset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.entry == nil {
		return nil, false
	}
	if l.ttl > 0 && l.now().Sub(l.entry.LoadedAt) >= l.ttl {
		return nil, false
	}
	return l.entry.Dataset, true
}

func (l *Loader) load(ctx context.Context) (*model.Dataset, error) {
	ctx, span := tracer.Start(ctx, "loader.Load")
	defer span.End()

	l.mu.RLock()
	gen := l.generation
	l.mu.RUnlock()

	start := l.now()
	logger.Info(ctx).Str("source", l.repo.Table()).Msg("Loading dataset")

	ds, err := l.fetch(ctx, start)
	took := l.now().Sub(start)
	if err != nil {
		l.metrics.ObserveLoad(resultLabel(err), took)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx).
			Err(err).
			Str("source", l.repo.Table()).
			Bool("retryable", model.Retryable(err)).
			Dur("duration", took).
			Msg("Dataset load failed")
		return nil, err
	}

	l.metrics.ObserveLoad("ok", took)
	l.metrics.SetDataset(ds.Len(), len(ds.Rejected))
	span.SetAttributes(
		attribute.String("dataset.id", ds.ID.String()),
		attribute.Int("dataset.rows", ds.Len()),
		attribute.Int("dataset.rejected", len(ds.Rejected)),
	)

	l.mu.Lock()
	if l.generation == gen {
		l.entry = &Entry{LoadedAt: ds.LoadedAt, Dataset: ds}
	}
	l.mu.Unlock()

	event := logger.Info(ctx)
	if len(ds.Rejected) > 0 || ds.InvalidWeight > 0 {
		event = logger.Warn(ctx)
	}
	event.
		Str("dataset_id", ds.ID.String()).
		Int("rows", ds.Len()).
		Int("rejected", len(ds.Rejected)).
		Int("invalid_weight", ds.InvalidWeight).
		Dur("duration", took).
		Msg("Dataset loaded")

	return ds, nil
}

func (l *Loader) fetch(ctx context.Context, loadedAt time.Time) (*model.Dataset, error) {
	raw, err := l.repo.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewDataset(l.repo.Table(), raw, loadedAt)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrConnection):
		return "connection_error"
	case errors.Is(err, model.ErrQuery):
		return "query_error"
	case errors.Is(err, model.ErrSchema):
		return "schema_error"
	default:
		return "error"
	}
}
