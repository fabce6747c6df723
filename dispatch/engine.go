package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jims1001/activityfeed/errs"
)

// GroupResult is what a GroupFunc reports for one dispatched group: a value
// or an error for every user ID in that group.
type GroupResult[T any] struct {
	Values map[string]T
	Errs   map[string]error
}

// NewGroupResult builds an empty GroupResult sized for n users.
func NewGroupResult[T any](n int) GroupResult[T] {
	return GroupResult[T]{
		Values: make(map[string]T, n),
		Errs:   make(map[string]error, n),
	}
}

// GroupFunc processes one bounded group of user IDs (size <= batch_size) and
// reports a per-user outcome. Implementations decide their own internal
// concurrency strategy for the group: the remote provider holds one pool
// checkout for the whole group and issues each user's commands in turn
// (they are not pipelined), the in-memory provider iterates the group
// under per-user locks.
type GroupFunc[T any] func(ctx context.Context, group []string) GroupResult[T]

// Options configures one Run of the dispatch engine.
type Options struct {
	// BatchSize bounds how many user IDs are handed to a single GroupFunc
	// call. Must be positive.
	BatchSize int
	// MaxConcurrentGroups bounds how many groups run at once. Zero means
	// unbounded (all groups launch immediately).
	MaxConcurrentGroups int
}

// Run partitions userIDs into groups of at most opts.BatchSize, runs those
// groups concurrently (bounded by opts.MaxConcurrentGroups), and merges
// their outcomes into a Response that preserves the input order of
// userIDs (spec.md §4.2, §8 P9).
//
// If ctx carries a deadline that expires before a group's GroupFunc
// returns, users in groups still in flight when Wait returns receive a
// Timeout error; users whose group already completed keep their recorded
// outcome, matching spec.md §5's "no partial results are discarded".
func Run[T any](ctx context.Context, userIDs []string, opts Options, fn GroupFunc[T]) (*Response[T], error) {
	if len(userIDs) == 0 {
		return nil, errs.Argumentf("user id list must not be empty")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(userIDs)
	}

	groups := partition(userIDs, batchSize)
	resp := NewResponse[T](userIDs)

	g, gctx := errgroup.WithContext(ctx)
	if opts.MaxConcurrentGroups > 0 {
		g.SetLimit(opts.MaxConcurrentGroups)
	}

	var mu sync.Mutex
	for _, group := range groups {
		group := group
		g.Go(func() error {
			gr := runGroupSafely(gctx, group, fn)
			mu.Lock()
			defer mu.Unlock()
			// A group whose deadline had already passed by the time its
			// GroupFunc returned is in flight past the caller's cutoff:
			// whatever it reported is discarded in favor of a Timeout,
			// matching spec.md §5 rather than trusting a stale result.
			if err := ctx.Err(); err != nil {
				timeoutErr := errs.TimeoutErr(fmt.Sprintf("deadline exceeded: %v", err))
				for _, id := range group {
					resp.SetErr(id, timeoutErr)
				}
				return nil
			}
			for _, id := range group {
				if err, failed := gr.Errs[id]; failed && err != nil {
					resp.SetErr(id, err)
					continue
				}
				if v, ok := gr.Values[id]; ok {
					resp.Set(id, v)
					continue
				}
				resp.SetErr(id, errs.Providerf(nil, "no result reported for user"))
			}
			return nil
		})
	}
	// g.Wait never returns a non-nil error: group goroutines always return
	// nil and instead record per-user failures, isolating them from
	// siblings per spec.md §4.2.
	_ = g.Wait()

	// Groups waiting on MaxConcurrentGroups are still launched once a slot
	// frees (g.Go blocks until then) and record their own Timeout above;
	// this only fills in any user that still has no entry after Wait.
	if err := ctx.Err(); err != nil {
		for _, id := range userIDs {
			if _, ok := resp.entries[id]; !ok {
				resp.SetErr(id, errs.TimeoutErr(fmt.Sprintf("deadline exceeded before dispatch: %v", err)))
			}
		}
	}
	return resp, nil
}

func runGroupSafely[T any](ctx context.Context, group []string, fn GroupFunc[T]) (result GroupResult[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = NewGroupResult[T](len(group))
			err := errs.Providerf(fmt.Errorf("panic: %v", r), "group handler panicked")
			for _, id := range group {
				result.Errs[id] = err
			}
		}
	}()
	return fn(ctx, group)
}

func partition(userIDs []string, size int) [][]string {
	if size <= 0 {
		size = len(userIDs)
	}
	groups := make([][]string, 0, (len(userIDs)+size-1)/size)
	for i := 0; i < len(userIDs); i += size {
		end := i + size
		if end > len(userIDs) {
			end = len(userIDs)
		}
		groups = append(groups, userIDs[i:end])
	}
	return groups
}
