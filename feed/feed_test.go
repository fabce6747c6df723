package feed_test

import (
	"context"
	"testing"

	"github.com/jims1001/activityfeed/errs"
	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/feed"
	"github.com/jims1001/activityfeed/provider/memory"
)

func TestDefineAndLookup(t *testing.T) {
	r := feed.NewRegistry()
	p := memory.New()

	f, err := r.Define("notifications", p, map[string]any{"namespace": "acme"})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if f.Name() != "notifications" {
		t.Fatalf("Name() = %q, want notifications", f.Name())
	}

	got, err := r.Feed("notifications")
	if err != nil || got != f {
		t.Fatalf("Feed() = (%v, %v), want the same *Feed back", got, err)
	}

	if _, err := r.Define("notifications", p, map[string]any{"namespace": "acme"}); errs.KindOf(err) != errs.ConfigError {
		t.Fatalf("redefine error kind = %v, want ConfigError", errs.KindOf(err))
	}

	if _, err := r.Feed("missing"); errs.KindOf(err) != errs.NotFound {
		t.Fatalf("Feed(missing) error kind = %v, want NotFound", errs.KindOf(err))
	}

	if got := r.Feeds(); len(got) != 1 || got[0] != "notifications" {
		t.Fatalf("Feeds() = %v, want [notifications]", got)
	}
}

func TestUserActivityUnwrapsSingleUserResult(t *testing.T) {
	r := feed.NewRegistry()
	f, err := r.Define("notifications", memory.New(), map[string]any{"namespace": "acme"})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	ctx := context.Background()
	ua := f.ForUser("u1")

	inserted, err := ua.Store(ctx, event.NewEvent("hello", 1))
	if err != nil || !inserted {
		t.Fatalf("Store = (%v, %v), want (true, nil)", inserted, err)
	}

	events, err := ua.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Value() != "hello" {
		t.Fatalf("Fetch() = %v, want [hello]", events)
	}

	total, err := ua.TotalCount(ctx)
	if err != nil || total != 1 {
		t.Fatalf("TotalCount() = (%d, %v), want (1, nil)", total, err)
	}
}

func TestActivityBatchesAcrossUsers(t *testing.T) {
	r := feed.NewRegistry()
	f, err := r.Define("notifications", memory.New(), map[string]any{"namespace": "acme"})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	ctx := context.Background()
	act := f.For("u1", "u2", "u3")

	resp, err := act.Store(ctx, event.NewEvent("hi", 1))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	for _, id := range act.UserIDs() {
		if v, ok := resp.Get(id); !ok || !v {
			t.Fatalf("Store result for %s = (%v, %v), want (true, true)", id, v, ok)
		}
	}
}

func TestScopeWithIsImmutable(t *testing.T) {
	r := feed.NewRegistry()
	f, err := r.Define("notifications", memory.New(), map[string]any{"namespace": "acme"})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	base := feed.NewScope(f.For("u1"))
	child := base.With("locale", "en-US")

	if _, ok := base.Binding("locale"); ok {
		t.Fatalf("base scope was mutated by With()")
	}
	v, ok := child.Binding("locale")
	if !ok || v != "en-US" {
		t.Fatalf("child.Binding(locale) = (%v, %v), want (en-US, true)", v, ok)
	}
}
