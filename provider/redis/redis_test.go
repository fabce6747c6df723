package redis

import (
	"errors"
	"strings"
	"testing"

	"github.com/jims1001/activityfeed/errs"
	"github.com/jims1001/activityfeed/provider"
)

func testKeyspace() provider.Keyspace {
	return provider.Keyspace{Namespace: "acme", FeedName: "notifications", MaxSize: 500, BatchSize: 25}
}

func TestKeyLayout(t *testing.T) {
	ks := testKeyspace()
	if got, want := dataKey(ks, "u1"), "acme|notifications|data|u1"; got != want {
		t.Fatalf("dataKey = %q, want %q", got, want)
	}
	if got, want := metaKey(ks, "u1"), "acme|notifications|meta|u1"; got != want {
		t.Fatalf("metaKey = %q, want %q", got, want)
	}
	if got, want := lockKey(ks, "u1"), "acme|notifications|lock|u1"; got != want {
		t.Fatalf("lockKey = %q, want %q", got, want)
	}
}

func TestParseWatermark(t *testing.T) {
	v, err := parseWatermark("42.5")
	if err != nil {
		t.Fatalf("parseWatermark: %v", err)
	}
	if v != 42.5 {
		t.Fatalf("parseWatermark = %v, want 42.5", v)
	}
	if _, err := parseWatermark(42); err == nil {
		t.Fatalf("parseWatermark(int) error = nil, want a ProviderError for the unexpected reply type")
	}
}

func TestDispatchOptionsDefaults(t *testing.T) {
	ks := provider.Keyspace{Namespace: "ns", FeedName: "feed"}
	opts := dispatchOptions(ks, 0)
	if opts.BatchSize != 50 {
		t.Fatalf("BatchSize = %d, want default 50", opts.BatchSize)
	}
	if opts.MaxConcurrentGroups != 1 {
		t.Fatalf("MaxConcurrentGroups = %d, want default 1", opts.MaxConcurrentGroups)
	}

	opts2 := dispatchOptions(testKeyspace(), 8)
	if opts2.BatchSize != 25 {
		t.Fatalf("BatchSize = %d, want ks.BatchSize 25", opts2.BatchSize)
	}
	if opts2.MaxConcurrentGroups != 8 {
		t.Fatalf("MaxConcurrentGroups = %d, want pool size 8", opts2.MaxConcurrentGroups)
	}
}

func TestAttachCorrelation(t *testing.T) {
	base := errs.Transport(errors.New("dial tcp: timeout"))
	tagged := attachCorrelation(base, "corr-123")

	fe, ok := tagged.(*errs.Error)
	if !ok {
		t.Fatalf("attachCorrelation returned %T, want *errs.Error", tagged)
	}
	if !strings.Contains(fe.Detail, "corr-123") {
		t.Fatalf("Detail = %q, want it to contain the correlation id", fe.Detail)
	}

	// Errors that aren't *errs.Error pass through untouched.
	plain := errors.New("plain error")
	if got := attachCorrelation(plain, "corr-456"); got != plain {
		t.Fatalf("attachCorrelation altered a non-*errs.Error value")
	}
}
