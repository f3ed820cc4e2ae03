package pipeline

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"testribute/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type countryMatcher string

func (c countryMatcher) Match(location model.Location) bool {
	return location.Country == string(c)
}

func newTestPipeline(t *testing.T, resolver DistanceResolver, filters ...Filter) *Pipeline {
	logger := zerolog.Nop()
	p, err := New(Config{
		Hosts:     testHosts,
		Distances: resolver,
		Filters:   filters,
		RandSource: func() rand.Source {
			return rand.NewSource(7)
		},
		Logger: &logger,
	})
	assert.NoError(t, err)
	return p
}

func TestNew_RequiresCollaborators(t *testing.T) {
	assert := assert.New(t)

	_, err := New(Config{Distances: new(MockDistanceResolver)})
	assert.Error(err)

	_, err = New(Config{Hosts: testHosts})
	assert.Error(err)

	_, err = New(Config{Hosts: testHosts, Distances: new(MockDistanceResolver), Normalization: "median"})
	assert.Error(err)
}

func TestRun_SingleEndpointNoObjects(t *testing.T) {
	assert := assert.New(t)

	p := newTestPipeline(t, new(MockDistanceResolver))
	result, err := p.Run(context.Background(), Input{
		Mode:           model.CostMode(),
		Requirements:   model.ResourceRequirements{CPUCores: 1, RAMGb: 1, ExecutionTimeSec: 60},
		TaskInfo:       map[string]model.TaskInfo{"https://tes1.example.org": taskInfo(4, 1.5, 9, model.EUR, 30)},
		TargetCurrency: model.EUR,
	})
	assert.NoError(err)
	assert.Equal(1, result.Generated)
	assert.Len(result.Response.ServiceCombinations, 1)

	combination := result.Response.ServiceCombinations[0]
	assert.Equal(1, combination.Rank)
	assert.Equal(5.5, combination.CostEstimate.Amount)
	assert.Equal(-1.0, combination.TimeEstimate)
	assert.Empty(result.Response.Warnings)
}

func TestRun_TwoEndpointsByCost(t *testing.T) {
	assert := assert.New(t)

	p := newTestPipeline(t, new(MockDistanceResolver))
	result, err := p.Run(context.Background(), Input{
		Mode:         model.CostMode(),
		Requirements: model.ResourceRequirements{CPUCores: 1, RAMGb: 1},
		TaskInfo: map[string]model.TaskInfo{
			"https://tes2.example.org": taskInfo(20, 0, 0, model.USD, 0),
			"https://tes1.example.org": taskInfo(10, 0, 0, model.USD, 0),
		},
		TargetCurrency: model.USD,
	})
	assert.NoError(err)
	assert.Equal(
		map[string]int{"https://tes1.example.org": 1, "https://tes2.example.org": 2},
		ranksByEndpoint(result.Response.ServiceCombinations))
}

func TestRun_UnconvertibleCurrencyEndpointDropped(t *testing.T) {
	assert := assert.New(t)

	p := newTestPipeline(t, new(MockDistanceResolver))
	result, err := p.Run(context.Background(), Input{
		Mode:         model.CostMode(),
		Requirements: model.ResourceRequirements{CPUCores: 1, RAMGb: 1},
		TaskInfo: map[string]model.TaskInfo{
			"https://tes1.example.org": taskInfo(10, 0, 0, model.BTC, 0),
			"https://tes2.example.org": taskInfo(20, 0, 0, model.EUR, 0),
		},
		Rates:          model.ExchangeRates{model.USD: 1.1},
		TargetCurrency: model.EUR,
	})
	assert.NoError(err)
	assert.Len(result.Response.ServiceCombinations, 1)
	assert.Equal("https://tes2.example.org", result.Response.ServiceCombinations[0].AccessURIs.TesURI)
	assert.Len(result.Response.Warnings, 1)
	assert.Contains(result.Response.Warnings[0], "https://tes1.example.org")
	assert.Equal(1, result.Dropped[StageCosts])
}

func TestRun_WeightedWithObjects(t *testing.T) {
	assert := assert.New(t)

	resolver := new(MockDistanceResolver)
	resolver.On("ResolveDistances", mock.Anything, mock.Anything).Return(
		table(map[model.IPPair]float64{
			model.NewIPPair("10.0.0.1", "10.0.1.1"): 1000,
			model.NewIPPair("10.0.0.1", "10.0.1.2"): 5000,
		}), nil).Once()

	p := newTestPipeline(t, resolver)
	result, err := p.Run(context.Background(), Input{
		Mode:         model.TimeMode(),
		Requirements: model.ResourceRequirements{CPUCores: 1, RAMGb: 1, ExecutionTimeSec: 100},
		ObjectIDs:    []string{"a001"},
		TaskInfo: map[string]model.TaskInfo{
			"https://tes1.example.org": taskInfo(1, 1, 1, model.EUR, 20),
		},
		Objects: model.ObjectCatalog{
			"a001": {
				"https://drs1.example.org": objectAt(1e9, "https://s1.example.org/a001", "https://s2.example.org/a001"),
			},
		},
		TargetCurrency: model.EUR,
	})
	assert.NoError(err)
	assert.Equal(2, result.Generated)
	assert.Len(result.Response.ServiceCombinations, 2)
	// pure time: no cost estimate, equal times keep generation order
	for i, combination := range result.Response.ServiceCombinations {
		assert.Equal(i+1, combination.Rank)
		assert.Equal(120.0, combination.TimeEstimate)
		assert.Equal(model.UnsetCosts, combination.CostEstimate)
	}

	assert.Equal("https://s1.example.org/a001", result.Response.ServiceCombinations[0].AccessURIs.Objects["a001"])
	resolver.AssertExpectations(t)
}

func TestRun_NoCombinations(t *testing.T) {
	assert := assert.New(t)

	p := newTestPipeline(t, new(MockDistanceResolver))
	_, err := p.Run(context.Background(), Input{
		Mode:      model.CostMode(),
		ObjectIDs: []string{"a001"},
		TaskInfo:  map[string]model.TaskInfo{"https://tes1.example.org": {}},
		Objects:   model.ObjectCatalog{},
	})
	assert.True(model.IsResourceUnavailableError(err))
}

func TestRun_LocationFilter(t *testing.T) {
	assert := assert.New(t)

	resolver := new(MockDistanceResolver)
	resolver.On("ResolveDistances", mock.Anything, mock.Anything).Return(&model.DistanceTable{
		Locations: map[string]model.Location{
			"10.0.0.1": {IP: "10.0.0.1", Country: "DE"},
			"10.0.0.2": {IP: "10.0.0.2", Country: "US"},
			"10.0.1.1": {IP: "10.0.1.1", Country: "DE"},
		},
		Distances: map[model.IPPair]float64{
			model.NewIPPair("10.0.0.1", "10.0.1.1"): 10,
			model.NewIPPair("10.0.0.2", "10.0.1.1"): 8000,
		},
	}, nil)

	logger := zerolog.Nop()
	filter := LocationFilter{Matcher: countryMatcher("DE"), Log: logger}
	p := newTestPipeline(t, resolver, filter)

	result, err := p.Run(context.Background(), Input{
		Mode:         model.TimeMode(),
		Requirements: model.ResourceRequirements{CPUCores: 1, RAMGb: 1},
		ObjectIDs:    []string{"a001"},
		TaskInfo: map[string]model.TaskInfo{
			"https://tes1.example.org": taskInfo(0, 0, 0, model.EUR, 50),
			"https://tes2.example.org": taskInfo(0, 0, 0, model.EUR, 10),
		},
		Objects: model.ObjectCatalog{
			"a001": {"https://drs1.example.org": objectAt(10, "https://s1.example.org/a001")},
		},
	})
	assert.NoError(err)
	assert.Len(result.Response.ServiceCombinations, 1)
	assert.Equal("https://tes1.example.org", result.Response.ServiceCombinations[0].AccessURIs.TesURI)
	assert.Equal(1, result.Dropped[StageFilter])
	assert.Contains(result.Response.Warnings[0], "US")
}

func TestRun_CombinationWithoutDistanceNotRanked(t *testing.T) {
	assert := assert.New(t)

	resolver := new(MockDistanceResolver)
	resolver.On("ResolveDistances", mock.Anything, []string{"10.0.0.1", "10.0.1.1"}).Return(
		table(map[model.IPPair]float64{
			model.NewIPPair("10.0.0.1", "10.0.1.1"): 1000,
		}), nil).Once()

	p := newTestPipeline(t, resolver)
	result, err := p.Run(context.Background(), Input{
		Mode:         model.CostMode(),
		Requirements: model.ResourceRequirements{CPUCores: 1, RAMGb: 1},
		ObjectIDs:    []string{"a001"},
		TaskInfo: map[string]model.TaskInfo{
			"https://tes1.example.org": taskInfo(4, 1, 2, model.EUR, 0),
		},
		Objects: model.ObjectCatalog{
			"a001": {
				"https://drs1.example.org": objectAt(1e9,
					"https://unresolvable.example.org/a001", "https://s1.example.org/a001"),
			},
		},
		TargetCurrency: model.EUR,
	})
	assert.NoError(err)
	assert.Equal(2, result.Generated)
	assert.Equal(1, result.Dropped[StageDistances])
	assert.Equal(0, result.Dropped[StageCosts])

	assert.Len(result.Response.ServiceCombinations, 1)
	combination := result.Response.ServiceCombinations[0]
	assert.Equal(1, combination.Rank)
	assert.Equal("https://s1.example.org/a001", combination.AccessURIs.Objects["a001"])
	// 4 + 1 + 1e9 bytes * 1000 km * 2 / 1e12
	assert.InDelta(7.0, combination.CostEstimate.Amount, 1e-9)

	assert.Contains(strings.Join(result.Response.Warnings, "\n"), "https://unresolvable.example.org/a001")
	resolver.AssertExpectations(t)
}

func TestRun_WarningsLoggedWhenRunFails(t *testing.T) {
	assert := assert.New(t)

	var buffer bytes.Buffer
	logger := zerolog.New(&buffer)

	p, err := New(Config{
		Hosts:     testHosts,
		Distances: new(MockDistanceResolver),
		Logger:    &logger,
	})
	assert.NoError(err)

	_, err = p.Run(context.Background(), Input{
		Mode:         model.CostMode(),
		Requirements: model.ResourceRequirements{CPUCores: 1, RAMGb: 1},
		TaskInfo: map[string]model.TaskInfo{
			"https://tes1.example.org": taskInfo(10, 0, 0, model.BTC, 0),
		},
		Rates:          model.ExchangeRates{},
		TargetCurrency: model.EUR,
	})
	assert.True(model.IsResourceUnavailableError(err))
	assert.Contains(buffer.String(), `"level":"warn"`)
	assert.Contains(buffer.String(), "https://tes1.example.org")
}
