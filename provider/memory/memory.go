// Package memory implements the in-memory reference provider (spec.md
// §4.3): an ordered-by-score structure per user, protected by a per-user
// mutex, with no global lock held during any operation. It is grounded on
// the teacher's module/message/msgflow/db_mem.go (map-of-maps storage with
// sentinel errors) and service/chat/conn_manager.go (per-key mutex maps
// with a secondary index).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jims1001/activityfeed/dispatch"
	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/provider"
)

// Provider is the in-memory reference implementation of provider.Provider.
// It is suitable for tests and small deployments; state does not survive
// process restart unless Dump/Restore is used explicitly.
type Provider struct {
	mu    sync.RWMutex
	feeds map[feedKey]*feedState

	// clock is injectable for tests, mirroring the teacher's
	// ManagerConf.Clock pattern in service/chat/conn_manager.go.
	clock func() time.Time
}

type feedKey struct {
	namespace string
	feedName  string
}

type feedState struct {
	mu    sync.RWMutex
	users map[string]*userState
}

type userState struct {
	mu       sync.Mutex
	events   map[string]event.Event
	lastRead float64
}

func newUserState() *userState {
	return &userState{events: make(map[string]event.Event)}
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithClock injects a wall-clock function, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) { p.clock = clock }
}

// New builds an empty in-memory provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		feeds: make(map[feedKey]*feedState),
		clock: time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

var _ provider.Provider = (*Provider)(nil)

func (p *Provider) now() float64 {
	return float64(p.clock().UnixNano()) / float64(time.Second)
}

func (p *Provider) feedFor(ks provider.Keyspace) *feedState {
	key := feedKey{namespace: ks.Namespace, feedName: ks.FeedName}

	p.mu.RLock()
	fs, ok := p.feeds[key]
	p.mu.RUnlock()
	if ok {
		return fs
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if fs, ok := p.feeds[key]; ok {
		return fs
	}
	fs = &feedState{users: make(map[string]*userState)}
	p.feeds[key] = fs
	return fs
}

func (fs *feedState) userFor(userID string) *userState {
	fs.mu.RLock()
	us, ok := fs.users[userID]
	fs.mu.RUnlock()
	if ok {
		return us
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if us, ok := fs.users[userID]; ok {
		return us
	}
	us = newUserState()
	fs.users[userID] = us
	return us
}

// dispatchOptions bounds concurrent group goroutines even though the
// in-memory provider has no connection pool to size against; unbounded
// fan-out over a huge user list would still spawn one goroutine per group.
func dispatchOptions(ks provider.Keyspace) dispatch.Options {
	return dispatch.Options{BatchSize: batchSizeOrDefault(ks), MaxConcurrentGroups: 32}
}

func batchSizeOrDefault(ks provider.Keyspace) int {
	if ks.BatchSize > 0 {
		return ks.BatchSize
	}
	return 10
}

// sortedEvents returns us.events ordered by provider.Less (caller must
// hold us.mu).
func sortedEvents(us *userState) []event.Event {
	out := make([]event.Event, 0, len(us.events))
	for _, e := range us.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return provider.Less(out[i], out[j]) })
	return out
}

// trimLocked evicts events beyond ks.MaxSize (caller must hold us.mu).
func trimLocked(us *userState, maxSize int) {
	if maxSize <= 0 || len(us.events) <= maxSize {
		return
	}
	ordered := sortedEvents(us)
	for _, e := range ordered[maxSize:] {
		delete(us.events, e.Value())
	}
}

func (p *Provider) Store(ctx context.Context, ks provider.Keyspace, userIDs []string, ev event.Event) (*dispatch.Response[bool], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[bool](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[bool] {
		gr := dispatch.NewGroupResult[bool](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			if _, exists := us.events[ev.Value()]; exists {
				gr.Values[id] = false
			} else {
				us.events[ev.Value()] = ev
				trimLocked(us, ks.MaxSize)
				gr.Values[id] = true
			}
			us.mu.Unlock()
		}
		return gr
	})
}

func (p *Provider) Delete(ctx context.Context, ks provider.Keyspace, userIDs []string, ev event.Event) (*dispatch.Response[bool], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[bool](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[bool] {
		gr := dispatch.NewGroupResult[bool](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			_, existed := us.events[ev.Value()]
			delete(us.events, ev.Value())
			us.mu.Unlock()
			gr.Values[id] = existed
		}
		return gr
	})
}

func (p *Provider) DeleteIf(ctx context.Context, ks provider.Keyspace, userIDs []string, pred provider.DeletePredicate) (*dispatch.Response[int], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[int](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[int] {
		gr := dispatch.NewGroupResult[int](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			removed := 0
			for value, e := range us.events {
				if pred(id, e) {
					delete(us.events, value)
					removed++
				}
			}
			us.mu.Unlock()
			gr.Values[id] = removed
		}
		return gr
	})
}

func (p *Provider) Wipe(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[bool], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[bool](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[bool] {
		gr := dispatch.NewGroupResult[bool](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			existed := len(us.events) > 0 || us.lastRead != 0
			us.events = make(map[string]event.Event)
			us.lastRead = 0
			us.mu.Unlock()
			gr.Values[id] = existed
		}
		return gr
	})
}

func (p *Provider) Paginate(ctx context.Context, ks provider.Keyspace, userIDs []string, q provider.PageQuery) (*dispatch.Response[provider.Page], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[provider.Page](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[provider.Page] {
		gr := dispatch.NewGroupResult[provider.Page](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			ordered := sortedEvents(us)
			start, end := provider.PageBounds(q.Page, q.PerPage, len(ordered))
			slice := append([]event.Event(nil), ordered[start:end]...)
			if !q.Peek && len(slice) > 0 {
				maxAt := slice[0].At()
				for _, e := range slice[1:] {
					if e.At() > maxAt {
						maxAt = e.At()
					}
				}
				if maxAt > us.lastRead {
					us.lastRead = maxAt
				}
			}
			page := provider.Page{Events: slice, Total: -1}
			if q.WithTotal {
				page.Total = len(ordered)
			}
			us.mu.Unlock()
			gr.Values[id] = page
		}
		return gr
	})
}

func (p *Provider) Fetch(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[[]event.Event], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[[]event.Event](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[[]event.Event] {
		gr := dispatch.NewGroupResult[[]event.Event](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			gr.Values[id] = sortedEvents(us)
			us.mu.Unlock()
		}
		return gr
	})
}

func (p *Provider) ResetLastRead(ctx context.Context, ks provider.Keyspace, userIDs []string, at *float64) (*dispatch.Response[float64], error) {
	fs := p.feedFor(ks)
	target := p.now()
	if at != nil {
		target = *at
	}
	return dispatch.Run[float64](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[float64] {
		gr := dispatch.NewGroupResult[float64](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			if target > us.lastRead {
				us.lastRead = target
			}
			gr.Values[id] = us.lastRead
			us.mu.Unlock()
		}
		return gr
	})
}

func (p *Provider) TotalCount(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[int], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[int](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[int] {
		gr := dispatch.NewGroupResult[int](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			gr.Values[id] = len(us.events)
			us.mu.Unlock()
		}
		return gr
	})
}

func (p *Provider) UnreadCount(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[int], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[int](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[int] {
		gr := dispatch.NewGroupResult[int](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			count := 0
			for _, e := range us.events {
				if e.At() > us.lastRead {
					count++
				}
			}
			us.mu.Unlock()
			gr.Values[id] = count
		}
		return gr
	})
}

func (p *Provider) LastRead(ctx context.Context, ks provider.Keyspace, userIDs []string) (*dispatch.Response[float64], error) {
	fs := p.feedFor(ks)
	return dispatch.Run[float64](ctx, userIDs, dispatchOptions(ks), func(ctx context.Context, group []string) dispatch.GroupResult[float64] {
		gr := dispatch.NewGroupResult[float64](len(group))
		for _, id := range group {
			us := fs.userFor(id)
			us.mu.Lock()
			gr.Values[id] = us.lastRead
			us.mu.Unlock()
		}
		return gr
	})
}
