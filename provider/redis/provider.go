// Package redis implements the remote sorted-set provider (spec.md §4.4,
// §6): one Redis ZSET per user for event storage, one string key per user
// for the last_read watermark, atomic store+trim and watermark bump via
// Lua scripts, and a bounded connection-pool checkout around every
// dispatch group's work. It is grounded on the teacher's
// service/storage/redis/redis.go (client construction), module/chat/seq/seq.go
// (Lua script shape and KEYS/ARGV convention), and service/storage/online.go
// (ZADD-based sorted-set indexing, cluster-safe key building).
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jims1001/activityfeed/dispatch"
	"github.com/jims1001/activityfeed/errs"
	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/internal/obs"
	"github.com/jims1001/activityfeed/provider"
)

// Config configures a Provider.
type Config struct {
	Client *goredis.Client
	// PoolSize bounds concurrent command batches in flight; see Pool.
	PoolSize int64
	Logger   *zap.Logger
	Metrics  *obs.Metrics
	// Debug enables per-command tracing at debug level, mirroring the
	// teacher's logger.Debug usage.
	Debug bool
	// Clock is injectable for deterministic ResetLastRead tests.
	Clock func() time.Time
}

// Provider is the Redis-backed implementation of provider.Provider.
type Provider struct {
	pool    *Pool
	logger  *zap.Logger
	metrics *obs.Metrics
	debug   bool
	clock   func() time.Time
}

// New builds a Provider from cfg.
func New(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = obs.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = obs.NopMetrics()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Provider{
		pool:    NewPool(cfg.Client, cfg.PoolSize),
		logger:  logger,
		metrics: metrics,
		debug:   cfg.Debug,
		clock:   clock,
	}
}

var _ provider.Provider = (*Provider)(nil)

func (p *Provider) now() float64 {
	return float64(p.clock().UnixNano()) / float64(time.Second)
}

func dispatchOptions(ks provider.Keyspace, poolSize int64) dispatch.Options {
	batch := ks.BatchSize
	if batch <= 0 {
		batch = 50
	}
	maxGroups := int(poolSize)
	if maxGroups <= 0 {
		maxGroups = 1
	}
	return dispatch.Options{BatchSize: batch, MaxConcurrentGroups: maxGroups}
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	return errs.Transport(pkgerrors.Wrap(err, "redis command failed"))
}

// userOp is one user's unit of work against an acquired connection.
type userOp[T any] func(ctx context.Context, conn *Conn, userID string) (T, error)

// runGroup acquires one pooled connection for the whole group, then runs
// fn once per user, retrying transient failures for idempotent ops
// (retryable=false for store, per spec.md §7 excluding it from retry so a
// dedup decision is never replayed against a mutated set).
func runGroup[T any](p *Provider, ctx context.Context, ks provider.Keyspace, group []string, opName string, retryable bool, fn userOp[T]) dispatch.GroupResult[T] {
	gr := dispatch.NewGroupResult[T](len(group))

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		wrapped := classifyErr(err)
		for _, id := range group {
			gr.Errs[id] = wrapped
		}
		return gr
	}
	defer conn.Release()

	corrID := uuid.NewString()
	for _, id := range group {
		v, opErr := runOne(ctx, conn, id, retryable, fn)

		if p.debug {
			p.logger.Debug("redis op",
				zap.String("op", opName),
				zap.String("feed", ks.FeedName),
				zap.String("user_id", id),
				zap.String("correlation_id", corrID),
				zap.Error(opErr),
			)
		}
		p.metrics.Ops.WithLabelValues(ks.FeedName, opName).Inc()
		if opErr != nil {
			p.metrics.ErrorsByKnd.WithLabelValues(ks.FeedName, opName, errs.KindOf(opErr).String()).Inc()
			gr.Errs[id] = attachCorrelation(opErr, corrID)
			continue
		}
		gr.Values[id] = v
	}
	return gr
}

// runDispatch wraps dispatch.Run with the batch-latency histogram: one
// observation per call, labeled by feed and operation, regardless of how
// many groups or users that call fanned out to.
func runDispatch[T any](p *Provider, ctx context.Context, ks provider.Keyspace, userIDs []string, opName string, fn dispatch.GroupFunc[T]) (*dispatch.Response[T], error) {
	start := time.Now()
	resp, err := dispatch.Run[T](ctx, userIDs, dispatchOptions(ks, p.pool.Size()), fn)
	p.metrics.BatchLatSec.WithLabelValues(ks.FeedName, opName).Observe(time.Since(start).Seconds())
	return resp, err
}

// attachCorrelation tags an *errs.Error record with the correlation ID of
// the group it failed in, so an operator can grep one ID across every
// command a group issued. Errors of any other type pass through as-is.
func attachCorrelation(err error, corrID string) error {
	if fe, ok := err.(*errs.Error); ok {
		return fe.WithDetail("correlation_id=" + corrID)
	}
	return err
}

func runOne[T any](ctx context.Context, conn *Conn, userID string, retryable bool, fn userOp[T]) (T, error) {
	if !retryable {
		return fn(ctx, conn, userID)
	}

	var result T
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err := backoff.Retry(func() error {
		v, err := fn(ctx, conn, userID)
		if err == nil {
			result = v
			return nil
		}
		if errs.KindOf(err) == errs.TransportError {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	return result, err
}

func (p *Provider) Store(ctx context.Context, ks provider.Keyspace, userIDs []string, ev event.Event) (*dispatch.Response[bool], error) {
	return runDispatch[bool](p, ctx, ks, userIDs, "store", func(ctx context.Context, group []string) dispatch.GroupResult[bool] {
		return runGroup[bool](p, ctx, ks, group, "store", false, func(ctx context.Context, conn *Conn, id string) (bool, error) {
			res, err := storeAndTrim.Run(ctx, conn.Client(), []string{dataKey(ks, id)}, ev.Value(), ev.At(), ks.MaxSize).Int64()
			if err != nil {
				return false, classifyErr(err)
			}
			return res == 1, nil
		})
	})
}

func (p *Provider) Delete(ctx context.Context, ks provider.Keyspace, userIDs []string, ev event.Event) (*dispatch.Response[bool], error) {
	return runDispatch[bool](p, ctx, ks, userIDs, "delete", func(ctx context.Context, group []string) dispatch.GroupResult[bool] {
		return runGroup[bool](p, ctx, ks, group, "delete", true, func(ctx context.Context, conn *Conn, id string) (bool, error) {
			n, err := conn.Client().ZRem(ctx, dataKey(ks, id), ev.Value()).Result()
			if err != nil {
				return false, classifyErr(err)
			}
			return n > 0, nil
		})
	})
}

func (p *Provider) DeleteIf(ctx context.Context, ks provider.Keyspace, userIDs []string, pred provider.DeletePredicate) (*dispatch.Response[int], error) {
	return runDispatch[int](p, ctx, ks, userIDs, "delete_if", func(ctx context.Context, group []string) dispatch.GroupResult[int] {
		// Not atomic: the predicate is arbitrary Go, so it cannot run
		// inside the Lua scripts used elsewhere in this provider. A
		// concurrent Store between the ZRevRangeWithScores read and the
		// ZRem write can only add events the predicate never saw, never
		// resurrect one it removed.
		return runGroup[int](p, ctx, ks, group, "delete_if", true, func(ctx context.Context, conn *Conn, id string) (int, error) {
			zs, err := conn.Client().ZRevRangeWithScores(ctx, dataKey(ks, id), 0, -1).Result()
			if err != nil {
				return 0, classifyErr(err)
			}
			toRemove := make([]any, 0, len(zs))
			for _, z := range zs {
				value, _ := z.Member.(string)
				if pred(id, event.NewEvent(value, z.Score)) {
					toRemove = append(toRemove, z.Member)
				}
			}
			if len(toRemove) == 0 {
				return 0, nil
			}
			if _, err := conn.Client().ZRem(ctx, dataKey(ks, id), toRemove...).Result(); err != nil {
				return 0, classifyErr(err)
			}
			return len(toRemove), nil
		})
	})
}

func (p *Provider) Wipe(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[bool], error) {
	return runDispatch[bool](p, ctx, ks, userIDs, "wipe", func(ctx context.Context, group []string) dispatch.GroupResult[bool] {
		return runGroup[bool](p, ctx, ks, group, "wipe", true, func(ctx context.Context, conn *Conn, id string) (bool, error) {
			keys := []string{dataKey(ks, id), metaKey(ks, id), lockKey(ks, id)}
			existed, err := conn.Client().Exists(ctx, keys...).Result()
			if err != nil {
				return false, classifyErr(err)
			}
			if _, err := conn.Client().Del(ctx, keys...).Result(); err != nil {
				return false, classifyErr(err)
			}
			return existed > 0, nil
		})
	})
}

func (p *Provider) Paginate(ctx context.Context, ks provider.Keyspace, userIDs []string, q provider.PageQuery) (*dispatch.Response[provider.Page], error) {
	return runDispatch[provider.Page](p, ctx, ks, userIDs, "paginate", func(ctx context.Context, group []string) dispatch.GroupResult[provider.Page] {
		return runGroup[provider.Page](p, ctx, ks, group, "paginate", true, func(ctx context.Context, conn *Conn, id string) (provider.Page, error) {
			key := dataKey(ks, id)
			card, err := conn.Client().ZCard(ctx, key).Result()
			if err != nil {
				return provider.Page{}, classifyErr(err)
			}
			start, end := provider.PageBounds(q.Page, q.PerPage, int(card))
			var events []event.Event
			if start < end {
				zs, err := conn.Client().ZRevRangeWithScores(ctx, key, int64(start), int64(end-1)).Result()
				if err != nil {
					return provider.Page{}, classifyErr(err)
				}
				events = zsToEvents(zs)
			}
			if !q.Peek && len(events) > 0 {
				maxAt := events[0].At()
				for _, e := range events[1:] {
					if e.At() > maxAt {
						maxAt = e.At()
					}
				}
				if _, err := bumpWatermark.Run(ctx, conn.Client(), []string{metaKey(ks, id)}, maxAt).Result(); err != nil {
					return provider.Page{}, classifyErr(err)
				}
			}
			page := provider.Page{Events: events, Total: -1}
			if q.WithTotal {
				page.Total = int(card)
			}
			return page, nil
		})
	})
}

func (p *Provider) Fetch(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[[]event.Event], error) {
	return runDispatch[[]event.Event](p, ctx, ks, userIDs, "fetch", func(ctx context.Context, group []string) dispatch.GroupResult[[]event.Event] {
		return runGroup[[]event.Event](p, ctx, ks, group, "fetch", true, func(ctx context.Context, conn *Conn, id string) ([]event.Event, error) {
			zs, err := conn.Client().ZRevRangeWithScores(ctx, dataKey(ks, id), 0, -1).Result()
			if err != nil {
				return nil, classifyErr(err)
			}
			return zsToEvents(zs), nil
		})
	})
}

func (p *Provider) ResetLastRead(ctx context.Context, ks provider.Keyspace, userIDs []string, at *float64) (*dispatch.Response[float64], error) {
	target := p.now()
	if at != nil {
		target = *at
	}
	return runDispatch[float64](p, ctx, ks, userIDs, "reset_last_read", func(ctx context.Context, group []string) dispatch.GroupResult[float64] {
		return runGroup[float64](p, ctx, ks, group, "reset_last_read", true, func(ctx context.Context, conn *Conn, id string) (float64, error) {
			res, err := bumpWatermark.Run(ctx, conn.Client(), []string{metaKey(ks, id)}, target).Result()
			if err != nil {
				return 0, classifyErr(err)
			}
			return parseWatermark(res)
		})
	})
}

func (p *Provider) TotalCount(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[int], error) {
	return runDispatch[int](p, ctx, ks, userIDs, "total_count", func(ctx context.Context, group []string) dispatch.GroupResult[int] {
		return runGroup[int](p, ctx, ks, group, "total_count", true, func(ctx context.Context, conn *Conn, id string) (int, error) {
			n, err := conn.Client().ZCard(ctx, dataKey(ks, id)).Result()
			if err != nil {
				return 0, classifyErr(err)
			}
			return int(n), nil
		})
	})
}

func (p *Provider) UnreadCount(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[int], error) {
	return runDispatch[int](p, ctx, ks, userIDs, "unread_count", func(ctx context.Context, group []string) dispatch.GroupResult[int] {
		return runGroup[int](p, ctx, ks, group, "unread_count", true, func(ctx context.Context, conn *Conn, id string) (int, error) {
			lastRead, err := getLastRead(ctx, conn, ks, id)
			if err != nil {
				return 0, err
			}
			n, err := conn.Client().ZCount(ctx, dataKey(ks, id), fmt.Sprintf("(%s", strconv.FormatFloat(lastRead, 'f', -1, 64)), "+inf").Result()
			if err != nil {
				return 0, classifyErr(err)
			}
			return int(n), nil
		})
	})
}

func (p *Provider) LastRead(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[float64], error) {
	return runDispatch[float64](p, ctx, ks, userIDs, "last_read", func(ctx context.Context, group []string) dispatch.GroupResult[float64] {
		return runGroup[float64](p, ctx, ks, group, "last_read", true, func(ctx context.Context, conn *Conn, id string) (float64, error) {
			return getLastRead(ctx, conn, ks, id)
		})
	})
}

func getLastRead(ctx context.Context, conn *Conn, ks provider.Keyspace, id string) (float64, error) {
	val, err := conn.Client().Get(ctx, metaKey(ks, id)).Result()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, classifyErr(err)
	}
	return strconv.ParseFloat(val, 64)
}

func parseWatermark(v any) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errs.Providerf(nil, "unexpected watermark script reply type %T", v)
	}
	return strconv.ParseFloat(s, 64)
}

func zsToEvents(zs []goredis.Z) []event.Event {
	out := make([]event.Event, 0, len(zs))
	for _, z := range zs {
		value, _ := z.Member.(string)
		out = append(out, event.NewEvent(value, z.Score))
	}
	return out
}
