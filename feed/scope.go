package feed

// Scope pairs an Activity handle with a bag of caller-supplied bindings,
// replacing the source language's implicit-block-with-context pattern
// (a `with_activity(user) do ... end`-style block that closed over local
// variables) with an explicit, inspectable value. Bindings carries
// whatever a caller wants threaded alongside the Activity — a request ID,
// a rendering locale, feature flags — without widening Activity's own
// method signatures for every possible caller concern.
type Scope struct {
	Activity *Activity
	Bindings map[string]any
}

// NewScope builds a Scope over activity with an empty binding set.
func NewScope(activity *Activity) Scope {
	return Scope{Activity: activity, Bindings: map[string]any{}}
}

// With returns a copy of s with key bound to value, following the
// functional-options idiom used elsewhere in this codebase: the receiver
// is never mutated, so a Scope can be safely shared and forked.
func (s Scope) With(key string, value any) Scope {
	next := make(map[string]any, len(s.Bindings)+1)
	for k, v := range s.Bindings {
		next[k] = v
	}
	next[key] = value
	return Scope{Activity: s.Activity, Bindings: next}
}

// Binding returns the value bound to key and whether it was set.
func (s Scope) Binding(key string) (any, bool) {
	v, ok := s.Bindings[key]
	return v, ok
}
