// Package providertest exercises spec.md §8's testable properties and
// end-to-end scenarios against any provider.Provider implementation, so
// the in-memory and remote providers are held to the exact same contract.
package providertest

import (
	"context"
	"testing"

	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/provider"
)

// Factory builds a fresh, empty Provider for one test. Run calls it
// once per sub-test so state never leaks between them.
type Factory func(t *testing.T) provider.Provider

// Run exercises every invariant and scenario from spec.md §8 against the
// Provider produced by newProvider.
func Run(t *testing.T, newProvider Factory) {
	t.Run("StoreThenFetchContainsEvent", func(t *testing.T) { testStoreThenFetch(t, newProvider) })
	t.Run("DuplicateStoreIsNoop", func(t *testing.T) { testDedup(t, newProvider) })
	t.Run("TotalCountMatchesFetchLength", func(t *testing.T) { testTotalCountMatchesFetch(t, newProvider) })
	t.Run("UnreadCountMatchesWatermark", func(t *testing.T) { testUnreadCount(t, newProvider) })
	t.Run("Trimming", func(t *testing.T) { testTrimming(t, newProvider) })
	t.Run("PeekDoesNotAdvanceWatermark", func(t *testing.T) { testPeek(t, newProvider) })
	t.Run("WipeResetsState", func(t *testing.T) { testWipe(t, newProvider) })
	t.Run("FetchOrderingIsDescending", func(t *testing.T) { testOrdering(t, newProvider) })
	t.Run("MultiUserOrderAndIsolation", func(t *testing.T) { testMultiUserIsolation(t, newProvider) })
	t.Run("DeleteIfReturnsCount", func(t *testing.T) { testDeleteIf(t, newProvider) })
	t.Run("PaginateBeyondRangeIsEmpty", func(t *testing.T) { testPaginateBeyondRange(t, newProvider) })
}

func ks(maxSize int) provider.Keyspace {
	return provider.Keyspace{Namespace: "ns", FeedName: "feed", MaxSize: maxSize, BatchSize: 10}
}

func testStoreThenFetch(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	ev := event.NewEvent("hello", 1000)
	if _, err := p.Store(ctx, ks(1000), []string{"u1"}, ev); err != nil {
		t.Fatalf("Store: %v", err)
	}
	resp, err := p.Fetch(ctx, ks(1000), []string{"u1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	events, _ := resp.Get("u1")
	if len(events) != 1 || events[0].Value() != "hello" {
		t.Fatalf("Fetch(u1) = %v, want [hello]", events)
	}
}

func testDedup(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	resp1, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent("hello", 1000))
	if err != nil {
		t.Fatalf("Store #1: %v", err)
	}
	if v, _ := resp1.Get("u1"); !v {
		t.Fatalf("Store #1 = %v, want true (newly inserted)", v)
	}
	resp2, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent("hello", 2000))
	if err != nil {
		t.Fatalf("Store #2: %v", err)
	}
	if v, _ := resp2.Get("u1"); v {
		t.Fatalf("Store #2 = %v, want false (duplicate value)", v)
	}
	fetchResp, err := p.Fetch(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	events, _ := fetchResp.Get("u1")
	if len(events) != 1 {
		t.Fatalf("Fetch(u1) len = %d, want 1", len(events))
	}
	if events[0].At() != 1000 {
		t.Fatalf("Fetch(u1)[0].At() = %v, want 1000 (original score preserved)", events[0].At())
	}
}

func testTotalCountMatchesFetch(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	for i, v := range []string{"a", "b", "c"} {
		if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent(v, float64(i))); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	countResp, err := p.TotalCount(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("TotalCount: %v", err)
	}
	fetchResp, err := p.Fetch(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	total, _ := countResp.Get("u1")
	events, _ := fetchResp.Get("u1")
	if total != len(events) {
		t.Fatalf("TotalCount = %d, want %d (len(Fetch))", total, len(events))
	}
}

func testUnreadCount(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	for _, pair := range []struct {
		v  string
		at float64
	}{{"x", 10}, {"y", 20}, {"z", 30}} {
		if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent(pair.v, pair.at)); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	unreadResp, err := p.UnreadCount(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n, _ := unreadResp.Get("u1"); n != 3 {
		t.Fatalf("UnreadCount before paginate = %d, want 3", n)
	}

	pageResp, err := p.Paginate(ctx, k, []string{"u1"}, provider.PageQuery{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	page, _ := pageResp.Get("u1")
	if len(page.Events) != 2 || page.Events[0].Value() != "z" || page.Events[1].Value() != "y" {
		t.Fatalf("Paginate page = %v, want [z, y]", page.Events)
	}

	lastReadResp, err := p.LastRead(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("LastRead: %v", err)
	}
	if lr, _ := lastReadResp.Get("u1"); lr != 30 {
		t.Fatalf("LastRead after paginate = %v, want 30", lr)
	}

	unreadResp2, err := p.UnreadCount(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n, _ := unreadResp2.Get("u1"); n != 0 {
		t.Fatalf("UnreadCount after paginate(peek=false) = %d, want 0", n)
	}
}

func testTrimming(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(3)
	for i, v := range []string{"a", "b", "c", "d"} {
		if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent(v, float64(i+1))); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	fetchResp, err := p.Fetch(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	events, _ := fetchResp.Get("u1")
	if len(events) != 3 {
		t.Fatalf("Fetch len = %d, want 3 (max_size trims oldest)", len(events))
	}
	got := []string{events[0].Value(), events[1].Value(), events[2].Value()}
	want := []string{"d", "c", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fetch order = %v, want %v", got, want)
		}
	}
}

func testPeek(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	for _, pair := range []struct {
		v  string
		at float64
	}{{"x", 10}, {"y", 20}, {"z", 30}} {
		if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent(pair.v, pair.at)); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	_, err := p.Paginate(ctx, k, []string{"u1"}, provider.PageQuery{Page: 1, PerPage: 2, Peek: true})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	lastReadResp, err := p.LastRead(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("LastRead: %v", err)
	}
	if lr, _ := lastReadResp.Get("u1"); lr != 0 {
		t.Fatalf("LastRead after peek = %v, want 0 (unchanged)", lr)
	}
	unreadResp, err := p.UnreadCount(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n, _ := unreadResp.Get("u1"); n != 3 {
		t.Fatalf("UnreadCount after peek = %d, want 3 (unchanged)", n)
	}
}

func testWipe(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent("a", 1)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	wipeResp, err := p.Wipe(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if existed, _ := wipeResp.Get("u1"); !existed {
		t.Fatalf("Wipe(u1) = %v, want true (had prior state)", existed)
	}
	totalResp, err := p.TotalCount(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("TotalCount: %v", err)
	}
	unreadResp, err := p.UnreadCount(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	lastReadResp, err := p.LastRead(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("LastRead: %v", err)
	}
	total, _ := totalResp.Get("u1")
	unread, _ := unreadResp.Get("u1")
	lastRead, _ := lastReadResp.Get("u1")
	if total != 0 || unread != 0 || lastRead != 0 {
		t.Fatalf("post-wipe state = (total=%d, unread=%d, last_read=%v), want all zero", total, unread, lastRead)
	}
}

func testOrdering(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	for i, v := range []string{"a", "b", "c"} {
		if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent(v, float64(i))); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	resp, err := p.Fetch(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	events, _ := resp.Get("u1")
	for i := 1; i < len(events); i++ {
		if events[i-1].At() < events[i].At() {
			t.Fatalf("Fetch not descending at index %d: %v", i, events)
		}
	}
}

func testMultiUserIsolation(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	users := []string{"1", "2", "3"}
	resp, err := p.Store(ctx, k, users, event.NewEvent("hi", 1))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if got := resp.UserIDs(); len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("UserIDs() = %v, want input order [1 2 3]", got)
	}
	for _, u := range users {
		if v, ok := resp.Get(u); !ok || !v {
			t.Fatalf("Store result for %s = (%v, %v), want (true, true)", u, v, ok)
		}
	}
}

func testDeleteIf(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	for i := 1; i <= 10; i++ {
		v := string(rune('a' + i))
		if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent(v, float64(i))); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	delResp, err := p.DeleteIf(ctx, k, []string{"u1"}, func(userID string, e event.Event) bool {
		return int64(e.At())%2 == 0
	})
	if err != nil {
		t.Fatalf("DeleteIf: %v", err)
	}
	if n, _ := delResp.Get("u1"); n != 5 {
		t.Fatalf("DeleteIf removed = %d, want 5", n)
	}
	fetchResp, err := p.Fetch(ctx, k, []string{"u1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	events, _ := fetchResp.Get("u1")
	if len(events) != 5 {
		t.Fatalf("Fetch len after DeleteIf = %d, want 5", len(events))
	}
	for _, e := range events {
		if int64(e.At())%2 == 0 {
			t.Fatalf("Fetch still contains even-at event %v", e)
		}
	}
}

func testPaginateBeyondRange(t *testing.T, newProvider Factory) {
	p := newProvider(t)
	ctx := context.Background()
	k := ks(1000)
	if _, err := p.Store(ctx, k, []string{"u1"}, event.NewEvent("a", 1)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	pageResp, err := p.Paginate(ctx, k, []string{"u1"}, provider.PageQuery{Page: 50, PerPage: 10, WithTotal: true})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	page, ok := pageResp.Get("u1")
	if !ok {
		t.Fatalf("Paginate(page=50) failed: %v", pageResp.Err("u1"))
	}
	if len(page.Events) != 0 {
		t.Fatalf("Paginate(page=50).Events = %v, want empty", page.Events)
	}
	if page.Total != 1 {
		t.Fatalf("Paginate(page=50).Total = %d, want 1", page.Total)
	}
}
