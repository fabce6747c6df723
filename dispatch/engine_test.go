package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunPreservesOrderAndIsolatesErrors(t *testing.T) {
	users := []string{"1", "2", "3"}
	resp, err := Run[bool](context.Background(), users, Options{BatchSize: 1}, func(ctx context.Context, group []string) GroupResult[bool] {
		gr := NewGroupResult[bool](len(group))
		for _, id := range group {
			if id == "2" {
				gr.Errs[id] = errors.New("boom")
				continue
			}
			gr.Values[id] = true
		}
		return gr
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := resp.UserIDs(); len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("UserIDs() = %v, want input order preserved", got)
	}
	if !resp.HasErrors() {
		t.Fatalf("HasErrors() = false, want true")
	}
	if v, ok := resp.Get("1"); !ok || !v {
		t.Fatalf("Get(1) = (%v, %v), want (true, true)", v, ok)
	}
	if v, ok := resp.Get("3"); !ok || !v {
		t.Fatalf("Get(3) = (%v, %v), want (true, true)", v, ok)
	}
	if _, ok := resp.Get("2"); ok {
		t.Fatalf("Get(2) ok = true, want false (user 2 failed)")
	}
	if resp.Err("2") == nil {
		t.Fatalf("Err(2) = nil, want boom error")
	}
	v, err := resp.ValueOrRaise("1")
	if err != nil || !v {
		t.Fatalf("ValueOrRaise(1) = (%v, %v), want (true, nil)", v, err)
	}
	if _, err := resp.ValueOrRaise("2"); err == nil {
		t.Fatalf("ValueOrRaise(2) error = nil, want non-nil")
	}
}

func TestRunRejectsEmptyUserList(t *testing.T) {
	_, err := Run[bool](context.Background(), nil, Options{}, func(ctx context.Context, group []string) GroupResult[bool] {
		return NewGroupResult[bool](0)
	})
	if err == nil {
		t.Fatalf("Run() error = nil, want ArgumentError for empty user list")
	}
}

func TestRunPartitionsIntoBatchSizeGroups(t *testing.T) {
	users := []string{"1", "2", "3", "4", "5"}
	var maxGroupLen int
	_, err := Run[bool](context.Background(), users, Options{BatchSize: 2}, func(ctx context.Context, group []string) GroupResult[bool] {
		if len(group) > maxGroupLen {
			maxGroupLen = len(group)
		}
		gr := NewGroupResult[bool](len(group))
		for _, id := range group {
			gr.Values[id] = true
		}
		return gr
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if maxGroupLen > 2 {
		t.Fatalf("max group length = %d, want <= 2", maxGroupLen)
	}
}

func TestRunHonorsDeadline(t *testing.T) {
	users := []string{"1", "2"}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	resp, err := Run[bool](ctx, users, Options{BatchSize: 1, MaxConcurrentGroups: 1}, func(ctx context.Context, group []string) GroupResult[bool] {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
		}
		gr := NewGroupResult[bool](len(group))
		for _, id := range group {
			gr.Values[id] = true
		}
		return gr
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.HasErrors() {
		t.Fatalf("HasErrors() = false, want a Timeout for the group still in flight when the deadline hit")
	}
}

func TestRunRecoversPanicsPerGroup(t *testing.T) {
	users := []string{"1"}
	resp, err := Run[bool](context.Background(), users, Options{}, func(ctx context.Context, group []string) GroupResult[bool] {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Err("1") == nil {
		t.Fatalf("Err(1) = nil, want a ProviderError from the recovered panic")
	}
}
