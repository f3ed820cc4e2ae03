package mock

import (
	"context"

	"testribute/model"

	"github.com/stretchr/testify/mock"
)

type MockServicesRanker struct {
	mock.Mock
}

//nolint:all
func (m *MockServicesRanker) Rank(ctx context.Context, request model.Request) (*model.Response, error) {
	args := m.Called(ctx, request)
	response, _ := args.Get(0).(*model.Response)
	return response, args.Error(1)
}
