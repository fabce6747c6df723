// Package activityfeed is a per-user activity feed library: an
// ordered-set event store with dedup, trimming, and an unread watermark,
// dispatched in batches across many users at once, against a
// swappable provider (an in-memory reference implementation or a
// Redis-backed sorted-set store).
//
// A typical caller registers a feed once against a provider:
//
//	registry := activityfeed.Default()
//	feed, err := registry.Define("notifications", memory.New(), map[string]any{
//		"namespace": "acme",
//	})
//
// and then either batches across users:
//
//	resp, err := feed.For(userIDs...).Store(ctx, event.NewEventNow(payload))
//
// or works against a single user, unwrapped:
//
//	inserted, err := feed.ForUser(userID).Store(ctx, event.NewEventNow(payload))
package activityfeed

import (
	"sync"

	"github.com/jims1001/activityfeed/config"
	"github.com/jims1001/activityfeed/errs"
	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/feed"
	"github.com/jims1001/activityfeed/provider"
)

// Re-exports so common callers never need to import the leaf packages
// directly for the types that appear in every method signature.
type (
	Event           = event.Event
	Feed            = feed.Feed
	Activity        = feed.Activity
	UserActivity    = feed.UserActivity
	Scope           = feed.Scope
	Registry        = feed.Registry
	FeedConfig      = config.FeedConfig
	Provider        = provider.Provider
	Keyspace        = provider.Keyspace
	PageQuery       = provider.PageQuery
	Page            = provider.Page
	DeletePredicate = provider.DeletePredicate
	ErrorKind       = errs.Kind
)

// NewEvent and NewEventNow are re-exported for convenience; see the event
// package for the full type.
var (
	NewEvent    = event.NewEvent
	NewEventNow = event.NewEventNow
)

// Error kind re-exports, mirroring errs.Kind's constants.
const (
	ErrConfig    = errs.ConfigError
	ErrArgument  = errs.ArgumentError
	ErrTransport = errs.TransportError
	ErrTimeout   = errs.Timeout
	ErrProvider  = errs.ProviderError
	ErrNotFound  = errs.NotFound
)

// KindOf extracts the ErrorKind carried by err, if any.
func KindOf(err error) ErrorKind { return errs.KindOf(err) }

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry used by the package-level
// Define/Lookup convenience functions below. Most applications only ever
// need one registry; callers that want isolation (tests, multi-tenant
// hosts) should build their own with feed.NewRegistry instead.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = feed.NewRegistry()
	})
	return defaultRegistry
}

// Define registers a feed named name against p on the default registry.
func Define(name string, p Provider, opts map[string]any) (*Feed, error) {
	return Default().Define(name, p, opts)
}

// Lookup resolves a feed previously registered on the default registry.
func Lookup(name string) (*Feed, error) {
	return Default().Feed(name)
}
