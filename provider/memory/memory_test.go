package memory_test

import (
	"context"
	"testing"

	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/provider"
	"github.com/jims1001/activityfeed/provider/memory"
	"github.com/jims1001/activityfeed/provider/providertest"
)

func TestConformance(t *testing.T) {
	providertest.Run(t, func(t *testing.T) provider.Provider {
		return memory.New()
	})
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	ks := provider.Keyspace{Namespace: "ns", FeedName: "feed", MaxSize: 100, BatchSize: 10}

	src := memory.New()
	if _, err := src.Store(ctx, ks, []string{"u1", "u2"}, event.NewEvent("a", 1)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := src.Store(ctx, ks, []string{"u1"}, event.NewEvent("b", 2)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	at := 1.0
	if _, err := src.ResetLastRead(ctx, ks, []string{"u1"}, &at); err != nil {
		t.Fatalf("ResetLastRead: %v", err)
	}

	snap := src.Dump(ks)
	if len(snap) != 2 {
		t.Fatalf("Dump len = %d, want 2", len(snap))
	}

	dst := memory.New()
	dst.Restore(ks, snap)

	fetchResp, err := dst.Fetch(ctx, ks, []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	u1Events, _ := fetchResp.Get("u1")
	if len(u1Events) != 2 {
		t.Fatalf("restored u1 events = %v, want 2 entries", u1Events)
	}
	u2Events, _ := fetchResp.Get("u2")
	if len(u2Events) != 1 {
		t.Fatalf("restored u2 events = %v, want 1 entry", u2Events)
	}

	lastReadResp, err := dst.LastRead(ctx, ks, []string{"u1"})
	if err != nil {
		t.Fatalf("LastRead: %v", err)
	}
	if lr, _ := lastReadResp.Get("u1"); lr != 1 {
		t.Fatalf("restored u1 last_read = %v, want 1", lr)
	}
}
