package feed

import (
	"context"

	"github.com/jims1001/activityfeed/dispatch"
	"github.com/jims1001/activityfeed/event"
	"github.com/jims1001/activityfeed/provider"
)

// Activity is a batched, multi-user handle onto a Feed: every method maps
// directly onto the underlying Provider operation of the same name and
// returns a dispatch.Response keyed by user ID.
type Activity struct {
	feed    *Feed
	userIDs []string
}

// UserIDs returns the user IDs this handle was constructed for.
func (a *Activity) UserIDs() []string { return a.userIDs }

func (a *Activity) Store(ctx context.Context, ev event.Event) (*dispatch.Response[bool], error) {
	return a.feed.provider.Store(ctx, a.feed.keyspace(), a.userIDs, ev)
}

func (a *Activity) Delete(ctx context.Context, ev event.Event) (*dispatch.Response[bool], error) {
	return a.feed.provider.Delete(ctx, a.feed.keyspace(), a.userIDs, ev)
}

func (a *Activity) DeleteIf(ctx context.Context, pred provider.DeletePredicate) (*dispatch.Response[int], error) {
	return a.feed.provider.DeleteIf(ctx, a.feed.keyspace(), a.userIDs, pred)
}

func (a *Activity) Wipe(ctx context.Context) (*dispatch.Response[bool], error) {
	return a.feed.provider.Wipe(ctx, a.feed.keyspace(), a.userIDs)
}

func (a *Activity) Paginate(ctx context.Context, q provider.PageQuery) (*dispatch.Response[provider.Page], error) {
	return a.feed.provider.Paginate(ctx, a.feed.keyspace(), a.userIDs, a.feed.withPageDefaults(q))
}

func (a *Activity) Fetch(ctx context.Context) (*dispatch.Response[[]event.Event], error) {
	return a.feed.provider.Fetch(ctx, a.feed.keyspace(), a.userIDs)
}

func (a *Activity) ResetLastRead(ctx context.Context, at *float64) (*dispatch.Response[float64], error) {
	return a.feed.provider.ResetLastRead(ctx, a.feed.keyspace(), a.userIDs, at)
}

func (a *Activity) TotalCount(ctx context.Context) (*dispatch.Response[int], error) {
	return a.feed.provider.TotalCount(ctx, a.feed.keyspace(), a.userIDs)
}

func (a *Activity) UnreadCount(ctx context.Context) (*dispatch.Response[int], error) {
	return a.feed.provider.UnreadCount(ctx, a.feed.keyspace(), a.userIDs)
}

func (a *Activity) LastRead(ctx context.Context) (*dispatch.Response[float64], error) {
	return a.feed.provider.LastRead(ctx, a.feed.keyspace(), a.userIDs)
}

// UserActivity is a single-user handle onto a Feed: every method unwraps
// the batched provider Response for its one user_id, so callers dealing
// with one user never have to reach into a Response for a single key.
type UserActivity struct {
	feed   *Feed
	userID string
}

// UserID returns the user ID this handle was constructed for.
func (u *UserActivity) UserID() string { return u.userID }

func (u *UserActivity) Store(ctx context.Context, ev event.Event) (bool, error) {
	resp, err := u.feed.provider.Store(ctx, u.feed.keyspace(), []string{u.userID}, ev)
	if err != nil {
		return false, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) Delete(ctx context.Context, ev event.Event) (bool, error) {
	resp, err := u.feed.provider.Delete(ctx, u.feed.keyspace(), []string{u.userID}, ev)
	if err != nil {
		return false, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) DeleteIf(ctx context.Context, pred provider.DeletePredicate) (int, error) {
	resp, err := u.feed.provider.DeleteIf(ctx, u.feed.keyspace(), []string{u.userID}, pred)
	if err != nil {
		return 0, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) Wipe(ctx context.Context) (bool, error) {
	resp, err := u.feed.provider.Wipe(ctx, u.feed.keyspace(), []string{u.userID})
	if err != nil {
		return false, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) Paginate(ctx context.Context, q provider.PageQuery) (provider.Page, error) {
	resp, err := u.feed.provider.Paginate(ctx, u.feed.keyspace(), []string{u.userID}, u.feed.withPageDefaults(q))
	if err != nil {
		return provider.Page{}, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) Fetch(ctx context.Context) ([]event.Event, error) {
	resp, err := u.feed.provider.Fetch(ctx, u.feed.keyspace(), []string{u.userID})
	if err != nil {
		return nil, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) ResetLastRead(ctx context.Context, at *float64) (float64, error) {
	resp, err := u.feed.provider.ResetLastRead(ctx, u.feed.keyspace(), []string{u.userID}, at)
	if err != nil {
		return 0, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) TotalCount(ctx context.Context) (int, error) {
	resp, err := u.feed.provider.TotalCount(ctx, u.feed.keyspace(), []string{u.userID})
	if err != nil {
		return 0, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) UnreadCount(ctx context.Context) (int, error) {
	resp, err := u.feed.provider.UnreadCount(ctx, u.feed.keyspace(), []string{u.userID})
	if err != nil {
		return 0, err
	}
	return resp.ValueOrRaise(u.userID)
}

func (u *UserActivity) LastRead(ctx context.Context) (float64, error) {
	resp, err := u.feed.provider.LastRead(ctx, u.feed.keyspace(), []string{u.userID})
	if err != nil {
		return 0, err
	}
	return resp.ValueOrRaise(u.userID)
}
