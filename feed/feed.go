// Package feed ties a registered name, its resolved configuration, and a
// backing provider together into the handles callers actually use:
// Activity for batched multi-user operations, UserActivity for the
// single-user unwrap, and Scope as a bindings-carrying convenience layer
// on top of an Activity.
package feed

import (
	"github.com/jims1001/activityfeed/config"
	"github.com/jims1001/activityfeed/provider"
)

// Feed is one registered activity feed: a name, its resolved config, and
// the provider it stores state in.
type Feed struct {
	name     string
	cfg      config.FeedConfig
	provider provider.Provider
}

func newFeed(name string, cfg config.FeedConfig, p provider.Provider) *Feed {
	return &Feed{name: name, cfg: cfg, provider: p}
}

// Name returns the feed's registered name.
func (f *Feed) Name() string { return f.name }

// Config returns the feed's resolved configuration.
func (f *Feed) Config() config.FeedConfig { return f.cfg }

// Provider returns the backing provider, for callers that need direct
// access (dump/restore on the in-memory provider, for instance).
func (f *Feed) Provider() provider.Provider { return f.provider }

func (f *Feed) keyspace() provider.Keyspace {
	return provider.Keyspace{
		Namespace: f.cfg.Namespace,
		FeedName:  f.name,
		MaxSize:   f.cfg.MaxSize,
		BatchSize: f.cfg.BatchSize,
	}
}

func (f *Feed) withPageDefaults(q provider.PageQuery) provider.PageQuery {
	if q.PerPage <= 0 {
		q.PerPage = f.cfg.PerPage
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// For returns a batched, multi-user handle for userIDs.
func (f *Feed) For(userIDs ...string) *Activity {
	return &Activity{feed: f, userIDs: userIDs}
}

// ForUser returns a single-user handle that unwraps every provider
// response instead of returning a dispatch.Response.
func (f *Feed) ForUser(userID string) *UserActivity {
	return &UserActivity{feed: f, userID: userID}
}
