package dashboardhttp

import (
	"context"
)

// coalesce runs fn once per key among concurrent callers. An empty key
// disables sharing.
func (h *Handler) coalesce(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	if key == "" {
		v, err := fn(ctx)
		return v, err, false
	}
	resultChan := h.summaries.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
