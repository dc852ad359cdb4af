package client

import (
	"context"

	"campusconnect/internal/model"
	"campusconnect/internal/reconciler"
)

// Authority adapts the API client to the reconciler's server interface.
type Authority struct {
	C *Client
}

var _ reconciler.Authority = Authority{}

func (a Authority) WhoAmI(ctx context.Context) (*model.Principal, error) {
	return a.C.Me(ctx)
}

func (a Authority) Register(ctx context.Context, eventID string) (string, error) {
	return a.C.Register(ctx, eventID)
}

func (a Authority) Mine(ctx context.Context) ([]reconciler.Entry, error) {
	events, err := a.C.Mine(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]reconciler.Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, reconciler.EntryFromEvent(e))
	}
	return entries, nil
}
