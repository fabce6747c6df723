package provider

import "github.com/jims1001/activityfeed/event"

// Less implements the deterministic, stable read order every provider must
// produce (spec.md §4.2 "Tie-breaking"): descending by At, and for equal
// scores, descending by Value as the secondary key. Redis gets this for
// free from ZREVRANGE, which orders equal scores by member in reverse
// lexicographic order; the in-memory provider applies it explicitly when
// sorting. Trimming drops the tail of this order, so among the oldest
// events with equal scores the lexicographically smallest value goes
// first, as Redis's ZREMRANGEBYRANK does.
func Less(a, b event.Event) bool {
	if a.At() != b.At() {
		return a.At() > b.At()
	}
	return a.Value() > b.Value()
}

// PageBounds converts a 1-based page/per_page pair into the half-open
// [start, end) slice bounds spec.md §4.2 describes, clamped to length n.
// A page beyond the available data yields an empty (start==end==n) range
// rather than an error, per spec.md §9's open-question resolution.
func PageBounds(page, perPage, n int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	start = (page - 1) * perPage
	if start > n {
		start = n
	}
	end = start + perPage
	if end > n {
		end = n
	}
	return start, end
}
