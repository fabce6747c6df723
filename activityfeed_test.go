package activityfeed_test

import (
	"context"
	"testing"

	activityfeed "github.com/jims1001/activityfeed"
	"github.com/jims1001/activityfeed/provider/memory"
)

func TestDefaultRegistryDefineAndLookup(t *testing.T) {
	name := "test-feed-define-and-lookup"
	if _, err := activityfeed.Define(name, memory.New(), map[string]any{"namespace": "acme"}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	f, err := activityfeed.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	ctx := context.Background()
	ua := f.ForUser("u1")
	if _, err := ua.Store(ctx, activityfeed.NewEvent("hello", 1)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	total, err := ua.TotalCount(ctx)
	if err != nil || total != 1 {
		t.Fatalf("TotalCount() = (%d, %v), want (1, nil)", total, err)
	}
}
