package pipeline

import (
	"context"

	"testribute/model"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

type staticHosts map[string]string

func (s staticHosts) LookupHost(_ context.Context, host string) ([]string, error) {
	ip, ok := s[host]
	if !ok {
		return nil, errors.Errorf("no such host %s", host)
	}

	return []string{ip}, nil
}

type MockDistanceResolver struct {
	mock.Mock
}

//nolint:all
func (m *MockDistanceResolver) ResolveDistances(ctx context.Context, ips []string) (*model.DistanceTable, error) {
	args := m.Called(ctx, ips)
	table, _ := args.Get(0).(*model.DistanceTable)
	return table, args.Error(1)
}

func taskInfo(compute, storage, transfer float64, currency model.Currency, queueSec float64) model.TaskInfo {
	return model.TaskInfo{
		EstimatedComputeCosts: model.Costs{Amount: compute, Currency: currency},
		EstimatedStorageCosts: model.Costs{Amount: storage, Currency: currency},
		UnitCostsDataTransfer: model.Costs{Amount: transfer, Currency: currency},
		EstimatedQueueTime:    model.Duration{Duration: queueSec, Unit: model.Seconds},
	}
}

func objectAt(size int64, urls ...string) model.DrsObject {
	methods := make([]model.AccessMethod, 0, len(urls))
	for _, url := range urls {
		methods = append(methods, model.AccessMethod{
			Type:      model.HTTPS,
			AccessURL: &model.AccessURL{URL: url},
		})
	}

	return model.DrsObject{Size: size, AccessMethods: methods}
}

func table(distances map[model.IPPair]float64) *model.DistanceTable {
	t := model.NewDistanceTable()
	for pair, km := range distances {
		t.Distances[pair] = km
		t.Locations[pair.A] = model.Location{IP: pair.A}
		t.Locations[pair.B] = model.Location{IP: pair.B}
	}

	return t
}

func candidate(index int, tesURI string, cost float64, time float64) Candidate {
	return Candidate{
		Index:     index,
		URIs:      model.AccessURIs{TesURI: tesURI, Objects: map[string]string{}},
		Distances: map[string]float64{},
		Cost:      model.Costs{Amount: cost, Currency: model.EUR},
		Time:      time,
	}
}
