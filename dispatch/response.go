// Package dispatch implements the batched multi-user dispatch engine:
// partitioning a user-ID list into bounded groups, running those groups
// concurrently, and aggregating per-user results (or per-user errors)
// into an order-preserving Response.
package dispatch

import "fmt"

// entry is one user's outcome inside a Response.
type entry[T any] struct {
	value T
	err   error
	ok    bool // whether value is meaningful (err == nil)
}

// Response is a per-user result container for a batched call. It preserves
// the input order of user identifiers and isolates per-user failures: a
// failure for one user never prevents another user's result from being
// read.
type Response[T any] struct {
	order   []string
	entries map[string]entry[T]
}

// NewResponse builds an empty Response that will track the given user IDs
// in order. Every ID starts with no recorded outcome; callers fill outcomes
// with Set/SetErr before returning the Response to a caller.
func NewResponse[T any](userIDs []string) *Response[T] {
	r := &Response[T]{
		order:   append([]string(nil), userIDs...),
		entries: make(map[string]entry[T], len(userIDs)),
	}
	return r
}

// Set records a successful outcome for userID.
func (r *Response[T]) Set(userID string, value T) {
	r.entries[userID] = entry[T]{value: value, ok: true}
}

// SetErr records a failed outcome for userID.
func (r *Response[T]) SetErr(userID string, err error) {
	r.entries[userID] = entry[T]{err: err}
}

// UserIDs returns the input user list in its original order.
func (r *Response[T]) UserIDs() []string {
	return append([]string(nil), r.order...)
}

// Get looks up the recorded value for userID. ok is false if userID was not
// part of this Response, or if it failed (use Err to inspect the failure).
func (r *Response[T]) Get(userID string) (value T, ok bool) {
	e, found := r.entries[userID]
	if !found || !e.ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Err returns the recorded error for userID, or nil if that user succeeded
// or is absent from this Response.
func (r *Response[T]) Err(userID string) error {
	e, found := r.entries[userID]
	if !found {
		return nil
	}
	return e.err
}

// HasErrors reports whether any user in this Response failed.
func (r *Response[T]) HasErrors() bool {
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok && e.err != nil {
			return true
		}
	}
	return false
}

// ValueOrRaise returns the value for userID, or the error recorded for it.
// This is the batch-response analogue of the single-user Activity handle's
// unwrap-or-raise behavior (spec.md §4.6).
func (r *Response[T]) ValueOrRaise(userID string) (T, error) {
	e, found := r.entries[userID]
	if !found {
		var zero T
		return zero, nil
	}
	if e.err != nil {
		var zero T
		return zero, e.err
	}
	return e.value, nil
}

// Pair is one entry produced by Response.All, preserving input order.
type Pair[T any] struct {
	UserID string
	Value  T
	Err    error
}

// All returns every recorded outcome in input order.
func (r *Response[T]) All() []Pair[T] {
	out := make([]Pair[T], 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		out = append(out, Pair[T]{UserID: id, Value: e.value, Err: e.err})
	}
	return out
}

// String renders a compact summary of the response counts, useful for log
// lines and %v/%s formatting; it never dumps every user's value.
func (r *Response[T]) String() string {
	ok, failed := 0, 0
	for _, id := range r.order {
		if e := r.entries[id]; e.err != nil {
			failed++
		} else {
			ok++
		}
	}
	return fmt.Sprintf("Response{users:%d, ok:%d, err:%d}", len(r.order), ok, failed)
}

// Equal reports structural equality: same user IDs in the same order, same
// values, and errors that stringify the same way (error identity is not
// portable across processes, so message comparison is the practical
// equality spec.md §4.6 asks for).
func (r *Response[T]) Equal(other *Response[T], valueEqual func(a, b T) bool) bool {
	if other == nil || len(r.order) != len(other.order) {
		return false
	}
	for i, id := range r.order {
		if other.order[i] != id {
			return false
		}
		a, b := r.entries[id], other.entries[id]
		if (a.err == nil) != (b.err == nil) {
			return false
		}
		if a.err != nil && a.err.Error() != b.err.Error() {
			return false
		}
		if a.ok != b.ok {
			return false
		}
		if a.ok && !valueEqual(a.value, b.value) {
			return false
		}
	}
	return true
}
