package drs

import (
	"context"

	"testribute/model"

	"github.com/stretchr/testify/mock"
)

type ObjectFetcher interface {
	FetchObjects(ctx context.Context, uris []string, objectIDs []string, token string) (model.ObjectCatalog, []string)
}

type MockObjectFetcher struct {
	mock.Mock
}

//nolint:all
func (m *MockObjectFetcher) FetchObjects(ctx context.Context, uris []string, objectIDs []string, token string) (model.ObjectCatalog, []string) {
	args := m.Called(ctx, uris, objectIDs, token)
	return args.Get(0).(model.ObjectCatalog), args.Get(1).([]string)
}
