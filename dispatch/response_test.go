package dispatch

import (
	"errors"
	"strings"
	"testing"
)

func TestResponseString(t *testing.T) {
	r := NewResponse[int]([]string{"a", "b", "c"})
	r.Set("a", 1)
	r.Set("b", 2)
	r.SetErr("c", errors.New("boom"))

	s := r.String()
	if !strings.Contains(s, "users:3") || !strings.Contains(s, "ok:2") || !strings.Contains(s, "err:1") {
		t.Fatalf("String() = %q, want counts for 3 users, 2 ok, 1 err", s)
	}
}
