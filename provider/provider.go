// Package provider defines the backing-store contract every activity feed
// provider must satisfy bit-for-bit (spec.md §4.2): ordering, dedup,
// trimming, and unread-watermark semantics, expressed as batched
// operations over a list of user identifiers.
package provider

import (
	"context"

	"github.com/jims1001/activityfeed/dispatch"
	"github.com/jims1001/activityfeed/event"
)

// Keyspace identifies where a feed's per-user state lives: the namespace
// and feed name that prefix every key a provider touches (spec.md §4.4,
// §6), plus the per-user cap enforced on every insert.
type Keyspace struct {
	Namespace string
	FeedName  string
	MaxSize   int
	BatchSize int
}

// PageQuery describes one paginate() call.
type PageQuery struct {
	Page      int
	PerPage   int
	Peek      bool
	WithTotal bool
}

// Page is the result of one paginate() call for one user.
type Page struct {
	Events []event.Event
	// Total holds the user's total event count when WithTotal was
	// requested; it is -1 otherwise, so callers never mistake "not
	// requested" for a real zero count.
	Total int
}

// DeletePredicate is invoked once per (user_id, event) during delete_if.
type DeletePredicate func(userID string, e event.Event) bool

// Provider is the backing-store contract. Every method is inherently
// batched: it is handed the full list of target user IDs and returns a
// dispatch.Response keyed by user ID, isolating any per-user failure
// (spec.md §4.2). Single-user callers are served by unwrapping that
// Response one level up, in the feed package's UserActivity handle.
type Provider interface {
	// Store inserts ev for every user in userIDs. The result is true for
	// a user if ev.Value() was newly inserted, false if a duplicate value
	// already existed for that user (in which case the original score and
	// position are left untouched).
	Store(ctx context.Context, ks Keyspace, userIDs []string, ev event.Event) (*dispatch.Response[bool], error)

	// Delete removes the event matching ev.Value() for every user in
	// userIDs. The result is true if an event was actually removed.
	Delete(ctx context.Context, ks Keyspace, userIDs []string, ev event.Event) (*dispatch.Response[bool], error)

	// DeleteIf removes every event for which pred returns true, for every
	// user in userIDs. The result is the count removed for that user.
	DeleteIf(ctx context.Context, ks Keyspace, userIDs []string, pred DeletePredicate) (*dispatch.Response[int], error)

	// Wipe resets state to freshly-created for every user in userIDs. The
	// result is true if that user had any prior state.
	Wipe(ctx context.Context, ks Keyspace, userIDs []string) (*dispatch.Response[bool], error)

	// Paginate returns one page of events (ordered by At descending) for
	// every user in userIDs. Unless q.Peek is set, it also advances that
	// user's last_read watermark to the max At of the returned page.
	Paginate(ctx context.Context, ks Keyspace, userIDs []string, q PageQuery) (*dispatch.Response[Page], error)

	// Fetch returns every event (ordered by At descending, up to MaxSize)
	// for every user in userIDs.
	Fetch(ctx context.Context, ks Keyspace, userIDs []string) (*dispatch.Response[[]event.Event], error)

	// ResetLastRead sets last_read for every user in userIDs. If at is
	// nil, the current wall-clock time is used. The result is the
	// watermark actually stored (which never regresses).
	ResetLastRead(ctx context.Context, ks Keyspace, userIDs []string, at *float64) (*dispatch.Response[float64], error)

	// TotalCount returns |events| for every user in userIDs.
	TotalCount(ctx context.Context, ks Keyspace, userIDs []string) (*dispatch.Response[int], error)

	// UnreadCount returns the number of events with At > last_read for
	// every user in userIDs.
	UnreadCount(ctx context.Context, ks Keyspace, userIDs []string) (*dispatch.Response[int], error)

	// LastRead returns the current watermark for every user in userIDs.
	LastRead(ctx context.Context, ks Keyspace, userIDs []string) (*dispatch.Response[float64], error)
}
