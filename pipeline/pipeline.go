package pipeline

import (
	"context"
	"math/rand"
	"time"

	"testribute/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	StageDistances = "distances"
	StageFilter    = "filter"
	StageCosts     = "costs"
	StageTimes     = "times"
)

type Config struct {
	Hosts         HostResolver
	Distances     DistanceResolver
	Filters       []Filter
	Normalization Normalization
	// RandSource seeds random mode. A time-seeded source is used when nil.
	RandSource func() rand.Source
	Logger     *zerolog.Logger
}

type Pipeline struct {
	hosts         HostResolver
	distances     DistanceResolver
	filters       []Filter
	normalization Normalization
	randSource    func() rand.Source
	log           zerolog.Logger
}

// Input is everything collected from the collaborators for one request.
type Input struct {
	Mode           model.Mode
	Requirements   model.ResourceRequirements
	ObjectIDs      []string
	TaskInfo       map[string]model.TaskInfo
	Objects        model.ObjectCatalog
	Rates          model.ExchangeRates
	TargetCurrency model.Currency
}

type Result struct {
	Response  model.Response
	Generated int
	Dropped   map[string]int
}

func New(config Config) (*Pipeline, error) {
	if config.Hosts == nil {
		return nil, errors.New("host resolver is required")
	}

	if config.Distances == nil {
		return nil, errors.New("distance resolver is required")
	}

	normalization, err := ParseNormalization(string(config.Normalization))
	if err != nil {
		return nil, err
	}

	randSource := config.RandSource
	if randSource == nil {
		randSource = func() rand.Source {
			return rand.NewSource(time.Now().UnixNano())
		}
	}

	logger := log.With().Str("role", "pipeline").Caller().Logger()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Pipeline{
		hosts:         config.Hosts,
		distances:     config.Distances,
		filters:       config.Filters,
		normalization: normalization,
		randSource:    randSource,
		log:           logger,
	}, nil
}

// Run executes generation, distance resolution, filtering, estimation and ranking in
// that order. Any stage left without candidates fails the whole run.
//
//nolint:funlen
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	result := &Result{
		Response: model.Response{
			ServiceCombinations: []model.ServiceCombination{},
			Warnings:            []string{},
		},
		Dropped: make(map[string]int),
	}

	defer func() {
		for _, warning := range result.Response.Warnings {
			p.log.Warn().Msg(warning)
		}
	}()

	combinations := GenerateCombinations(in.TaskInfo, in.Objects, in.ObjectIDs)
	result.Generated = len(combinations)
	p.log.Debug().Int("combinations", len(combinations)).Str("mode", in.Mode.String()).Msg("generated combinations")

	if len(combinations) == 0 {
		return result, errors.WithStack(model.NewResourceUnavailableError(
			"Services cannot be ranked. No valid service combinations could be generated."))
	}

	candidates, table, warnings, err := ResolveDistances(ctx, combinations, p.hosts, p.distances, p.log)
	result.Response.Warnings = append(result.Response.Warnings, warnings...)
	result.Dropped[StageDistances] = len(combinations) - len(candidates)

	if err != nil {
		return result, err
	}

	for _, filter := range p.filters {
		before := len(candidates)
		candidates, warnings = filter.Apply(ctx, candidates, table)
		result.Response.Warnings = append(result.Response.Warnings, warnings...)
		result.Dropped[StageFilter] += before - len(candidates)

		if len(candidates) == 0 {
			return result, errors.WithStack(model.NewResourceUnavailableError(
				"Services cannot be ranked. No service combinations remain after filtering."))
		}
	}

	if in.Mode.RequiresCost() {
		before := len(candidates)
		candidates, warnings, err = EstimateCosts(
			candidates, in.TaskInfo, model.ObjectSizes(in.Objects), in.Rates, in.TargetCurrency)
		result.Response.Warnings = append(result.Response.Warnings, warnings...)
		result.Dropped[StageCosts] = before - len(candidates)

		if err != nil {
			return result, err
		}
	}

	if in.Mode.RequiresTime() {
		before := len(candidates)
		candidates, warnings, err = EstimateTimes(candidates, in.TaskInfo, in.Requirements)
		result.Response.Warnings = append(result.Response.Warnings, warnings...)
		result.Dropped[StageTimes] = before - len(candidates)

		if err != nil {
			return result, err
		}
	}

	//nolint:gosec
	rng := rand.New(p.randSource())
	result.Response.ServiceCombinations = Rank(candidates, in.Mode, p.normalization, rng)

	p.log.Info().Int("generated", result.Generated).
		Int("ranked", len(result.Response.ServiceCombinations)).
		Int("warnings", len(result.Response.Warnings)).Msg("ranked service combinations")

	return result, nil
}
