package store

import (
	"context"
	"sync"
)

// InMemoryHistory keeps at most Capacity records, dropping the oldest first.
type InMemoryHistory struct {
	Capacity int
	records  []RankingRecord
	mutex    sync.RWMutex
}

func (i *InMemoryHistory) Record(_ context.Context, record RankingRecord) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	i.records = append(i.records, record)
	if i.Capacity > 0 && len(i.records) > i.Capacity {
		i.records = i.records[len(i.records)-i.Capacity:]
	}

	return nil
}

func (i *InMemoryHistory) List(_ context.Context, limit int) ([]RankingRecord, error) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	result := make([]RankingRecord, 0, limit)
	for j := len(i.records) - 1; j >= 0 && len(result) < limit; j-- {
		result = append(result, i.records[j])
	}

	return result, nil
}
