package pipeline

import (
	"context"
	"testing"

	"testribute/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testHosts = staticHosts{
	"tes1.example.org": "10.0.0.1",
	"tes2.example.org": "10.0.0.2",
	"s1.example.org":   "10.0.1.1",
	"s2.example.org":   "10.0.1.2",
	"mirror.example":   "10.0.1.1",
	"colocated.tes":    "10.0.1.1",
}

func TestResolveDistances_SingleBatchCall(t *testing.T) {
	assert := assert.New(t)

	combinations := []model.AccessURIs{
		{TesURI: "https://tes1.example.org", Objects: map[string]string{"a001": "https://s1.example.org/a001", "a002": "https://s2.example.org/a002"}},
		{TesURI: "https://tes1.example.org", Objects: map[string]string{"a001": "https://mirror.example/a001", "a002": "https://s2.example.org/a002"}},
		{TesURI: "https://tes2.example.org", Objects: map[string]string{"a001": "https://s1.example.org/a001", "a002": "https://s2.example.org/a002"}},
	}

	resolver := new(MockDistanceResolver)
	resolver.On("ResolveDistances", mock.Anything, []string{"10.0.0.1", "10.0.0.2", "10.0.1.1", "10.0.1.2"}).Return(
		table(map[model.IPPair]float64{
			model.NewIPPair("10.0.0.1", "10.0.1.1"): 100,
			model.NewIPPair("10.0.0.1", "10.0.1.2"): 200,
			model.NewIPPair("10.0.0.2", "10.0.1.1"): 300,
			model.NewIPPair("10.0.0.2", "10.0.1.2"): 400,
		}), nil)

	candidates, _, warnings, err := ResolveDistances(context.Background(), combinations, testHosts, resolver, zerolog.Nop())
	assert.NoError(err)
	assert.Empty(warnings)
	assert.Len(candidates, 3)
	resolver.AssertNumberOfCalls(t, "ResolveDistances", 1)

	assert.Equal(300.0, candidates[0].TotalDistance)
	assert.Equal(300.0, candidates[1].TotalDistance)
	assert.Equal(700.0, candidates[2].TotalDistance)
	assert.Equal(300.0, candidates[2].Distances["a001"])
	assert.Equal("10.0.0.2", candidates[2].TesIP)
	assert.Equal(-1.0, candidates[2].Cost.Amount)
	assert.Equal(-1.0, candidates[2].Time)
}

func TestResolveDistances_IdenticalIPs(t *testing.T) {
	assert := assert.New(t)

	combinations := []model.AccessURIs{
		{TesURI: "https://colocated.tes", Objects: map[string]string{"a001": "https://s1.example.org/a001"}},
	}

	resolver := new(MockDistanceResolver)
	candidates, _, warnings, err := ResolveDistances(context.Background(), combinations, testHosts, resolver, zerolog.Nop())
	assert.NoError(err)
	assert.Empty(warnings)
	assert.Len(candidates, 1)
	assert.Equal(0.0, candidates[0].TotalDistance)
	resolver.AssertNotCalled(t, "ResolveDistances", mock.Anything, mock.Anything)
}

func TestResolveDistances_DropsIncompleteCombinations(t *testing.T) {
	assert := assert.New(t)

	combinations := []model.AccessURIs{
		{TesURI: "https://tes1.example.org", Objects: map[string]string{"a001": "https://s1.example.org/a001"}},
		{TesURI: "https://tes1.example.org", Objects: map[string]string{"a001": "https://unknown.example/a001"}},
		{TesURI: "https://unknown-tes.example", Objects: map[string]string{"a001": "https://s1.example.org/a001"}},
		{TesURI: "https://tes1.example.org", Objects: map[string]string{"a001": "https://s2.example.org/a001"}},
	}

	resolver := new(MockDistanceResolver)
	resolver.On("ResolveDistances", mock.Anything, mock.Anything).Return(
		table(map[model.IPPair]float64{
			model.NewIPPair("10.0.0.1", "10.0.1.1"): 100,
		}), nil)

	candidates, _, warnings, err := ResolveDistances(context.Background(), combinations, testHosts, resolver, zerolog.Nop())
	assert.NoError(err)
	assert.Len(candidates, 1)
	assert.Equal(0, candidates[0].Index)
	assert.Len(warnings, 3)
	assert.Contains(warnings[0], "unknown.example")
	assert.Contains(warnings[1], "unknown-tes.example")
	assert.Contains(warnings[2], "s2.example.org")
}

func TestResolveDistances_LookupFailureIsNotFatalAlone(t *testing.T) {
	assert := assert.New(t)

	combinations := []model.AccessURIs{
		{TesURI: "https://tes1.example.org", Objects: map[string]string{"a001": "https://s1.example.org/a001"}},
		{TesURI: "https://colocated.tes", Objects: map[string]string{"a001": "https://s1.example.org/a001"}},
	}

	resolver := new(MockDistanceResolver)
	resolver.On("ResolveDistances", mock.Anything, mock.Anything).Return(nil, errors.New("service unreachable"))

	candidates, _, warnings, err := ResolveDistances(context.Background(), combinations, testHosts, resolver, zerolog.Nop())
	assert.NoError(err)
	assert.Len(candidates, 1)
	assert.Equal("https://colocated.tes", candidates[0].URIs.TesURI)
	assert.Len(warnings, 1)

	candidates, _, _, err = ResolveDistances(context.Background(), combinations[:1], testHosts, resolver, zerolog.Nop())
	assert.Nil(candidates)
	assert.True(model.IsResourceUnavailableError(err))
}

func TestResolveDistances_NoObjects(t *testing.T) {
	assert := assert.New(t)

	combinations := []model.AccessURIs{
		{TesURI: "https://tes1.example.org", Objects: map[string]string{}},
		{TesURI: "https://unknown-tes.example", Objects: map[string]string{}},
	}

	resolver := new(MockDistanceResolver)
	candidates, _, warnings, err := ResolveDistances(context.Background(), combinations, testHosts, resolver, zerolog.Nop())
	assert.NoError(err)
	assert.Empty(warnings)
	assert.Len(candidates, 2)
	assert.Equal(0.0, candidates[1].TotalDistance)
	resolver.AssertNotCalled(t, "ResolveDistances", mock.Anything, mock.Anything)
}
