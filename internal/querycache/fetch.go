package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	tipster "github.com/winmix/tipsterhub/internal"
)

const tracerName = "github.com/winmix/tipsterhub/internal/querycache"

// Metrics receives cache events. *telemetry.Metrics satisfies it.
type Metrics interface {
	CacheHit(resource string)
	CacheMiss(resource string)
	CacheError(resource string)
	CacheInvalidated(n int)
}

type noopMetrics struct{}

func (noopMetrics) CacheHit(string)      {}
func (noopMetrics) CacheMiss(string)     {}
func (noopMetrics) CacheError(string)    {}
func (noopMetrics) CacheInvalidated(int) {}

// Config holds the optional collaborators of a Cache.
type Config struct {
	Metrics Metrics      // nil = no metrics
	Tracer  trace.Tracer // nil = global otel tracer
	Logger  *slog.Logger // nil = slog.Default()
}

// Cache is the query cache service shared by every reader in the process.
// Construct one per process (or per test) with New; there is no package-level
// instance.
type Cache struct {
	store    *Store
	inflight singleflight.Group
	metrics  Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New wraps store in a Cache.
func New(store *Store, cfg Config) *Cache {
	c := &Cache{
		store:   store,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		logger:  cfg.Logger,
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Store returns the underlying store.
func (c *Cache) Store() *Store { return c.store }

// Len returns the number of stored entries.
func (c *Cache) Len() int { return c.store.Len() }

// Stats returns a diagnostic snapshot of the cache contents.
func (c *Cache) Stats() Stats { return c.store.Stats() }

// Invalidate drops every entry whose key contains pattern, or everything when
// pattern is empty. Write paths call it with the table name they modified.
func (c *Cache) Invalidate(pattern string) int {
	n := c.store.Clear(pattern)
	c.metrics.CacheInvalidated(n)
	return n
}

// InvalidateTags drops every entry tagged with any of tags.
func (c *Cache) InvalidateTags(tags ...string) int {
	n := c.store.ClearTags(tags...)
	c.metrics.CacheInvalidated(n)
	return n
}

// QueryFunc performs the underlying read on a cache miss.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// FetchOptions tune a single Fetch.
type FetchOptions struct {
	TTL      time.Duration // 0 = store default
	CacheKey string        // overrides the derived key entirely
	Query    any           // options fed to BuildKey when CacheKey is empty
	Tags     []string      // extra tags; the resource name is always a tag
}

// Status classifies the outcome of a Fetch.
type Status int

const (
	StatusOK    Status = iota // data present
	StatusEmpty               // query succeeded with nothing to show
	StatusError               // query failed; nothing was cached
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of a Fetch.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error // set when Status is StatusError
	Cached bool  // served from the store without calling the query
}

// Fetch returns the cached value for resource and opts when one is fresh and
// otherwise runs query, caching its result on success. Query errors are logged
// and reported as StatusError; they are never cached, so the next Fetch retries.
//
// Concurrent misses for the same key share a single query call. The shared
// call is detached from any one caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func Fetch[T any](ctx context.Context, c *Cache, resource string, query QueryFunc[T], opts FetchOptions) Result[T] {
	key := opts.CacheKey
	if key == "" {
		key = BuildKey(resource, opts.Query)
	}

	ctx, span := c.tracer.Start(ctx, "querycache.fetch", trace.WithAttributes(
		attribute.String("cache.resource", resource),
		attribute.String("cache.key", key),
	))
	defer span.End()

	if v, ok := c.store.Get(key); ok {
		if data, ok := as[T](v); ok {
			c.metrics.CacheHit(resource)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return resultOf(data, true)
		}
		// Same key stored under a different type; refetch and overwrite.
	}
	c.metrics.CacheMiss(resource)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	tags := append([]string{resource}, opts.Tags...)
	ch := c.inflight.DoChan(key, func() (v any, err error) {
		// DoChan re-panics on a fresh goroutine where nothing can recover.
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, fmt.Errorf("query %s panicked: %v: %w", resource, r, tipster.ErrUpstream)
			}
		}()
		data, err := query(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store.SetTagged(key, data, opts.TTL, tags...)
		return data, nil
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			data, _ := as[T](res.Val)
			return resultOf(data, false)
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Caller went away; the shared query keeps running for other waiters.
		c.logger.LogAttrs(ctx, slog.LevelDebug, "cached query abandoned",
			slog.String("resource", resource),
			slog.String("key", key),
		)
		return Result[T]{Status: StatusError, Err: err}
	}

	c.metrics.CacheError(resource)
	span.RecordError(err)
	span.SetStatus(codes.Error, "query failed")
	c.logger.LogAttrs(ctx, slog.LevelError, "cached query failed",
		slog.String("resource", resource),
		slog.String("key", key),
		slog.String("error", err.Error()),
		slog.String("request_id", tipster.RequestIDFromContext(ctx)),
	)
	return Result[T]{Status: StatusError, Err: err}
}

// FetchWithCache is Fetch collapsed to (value, ok): ok is false when the query
// failed or found nothing. Callers that need to tell those apart use Fetch.
func FetchWithCache[T any](ctx context.Context, c *Cache, resource string, query QueryFunc[T], opts FetchOptions) (T, bool) {
	r := Fetch(ctx, c, resource, query, opts)
	return r.Value, r.Status == StatusOK
}

func resultOf[T any](data T, cached bool) Result[T] {
	status := StatusOK
	if isEmpty(data) {
		status = StatusEmpty
	}
	return Result[T]{Value: data, Status: status, Cached: cached}
}

// as converts a stored value back to T. A nil interface converts to the zero T.
func as[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}

// isEmpty reports whether v carries no data: nil, a nil pointer, or a
// zero-length slice or map.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
