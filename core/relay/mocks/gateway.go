package mocks

import (
	"context"

	"repost-manager/core/relay"

	"github.com/stretchr/testify/mock"
)

// Gateway is a mock implementation of relay.Gateway
type Gateway struct {
	mock.Mock
}

func (m *Gateway) PublishRepost(ctx context.Context, contentRef string, targetKind int, originalAuthor, contentEventID string) (*relay.Event, error) {
	args := m.Called(ctx, contentRef, targetKind, originalAuthor, contentEventID)
	if ev, ok := args.Get(0).(*relay.Event); ok {
		return ev, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) PublishRetraction(ctx context.Context, assertionEventID string) (*relay.Event, error) {
	args := m.Called(ctx, assertionEventID)
	if ev, ok := args.Get(0).(*relay.Event); ok {
		return ev, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) QueryByAuthors(ctx context.Context, authors []string, kinds []int, limit int) ([]relay.Event, error) {
	args := m.Called(ctx, authors, kinds, limit)
	if events, ok := args.Get(0).([]relay.Event); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) CountEvents(ctx context.Context, filter relay.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}
