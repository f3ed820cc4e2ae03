package tes

import (
	"context"

	"testribute/model"

	"github.com/stretchr/testify/mock"
)

type TaskInfoFetcher interface {
	FetchTaskInfo(
		ctx context.Context,
		uris []string,
		requirements model.ResourceRequirements,
		token string,
	) (map[string]model.TaskInfo, []string)
}

type MockTaskInfoFetcher struct {
	mock.Mock
}

//nolint:all
func (m *MockTaskInfoFetcher) FetchTaskInfo(ctx context.Context, uris []string, requirements model.ResourceRequirements, token string) (map[string]model.TaskInfo, []string) {
	args := m.Called(ctx, uris, requirements, token)
	return args.Get(0).(map[string]model.TaskInfo), args.Get(1).([]string)
}
