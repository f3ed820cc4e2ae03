package mock

import (
	"context"

	"testribute/store"

	"github.com/stretchr/testify/mock"
)

type MockHistory struct {
	mock.Mock
}

//nolint:all
func (m *MockHistory) Record(ctx context.Context, record store.RankingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

//nolint:all
func (m *MockHistory) List(ctx context.Context, limit int) ([]store.RankingRecord, error) {
	args := m.Called(ctx, limit)
	records, _ := args.Get(0).([]store.RankingRecord)
	return records, args.Error(1)
}
