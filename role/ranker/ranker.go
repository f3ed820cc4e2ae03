package ranker

import (
	"context"
	"encoding/json"
	"time"

	"testribute/model"
	"testribute/module/drs"
	"testribute/module/forex"
	"testribute/module/tes"
	"testribute/pipeline"
	"testribute/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const historyTimeout = 5 * time.Second

type Config struct {
	TaskInfo       tes.TaskInfoFetcher
	Objects        drs.ObjectFetcher
	Rates          forex.RateFetcher
	Pipeline       *pipeline.Pipeline
	History        store.History
	TargetCurrency model.Currency
	Timeout        time.Duration
}

// Service collects endpoint metadata for a request and ranks the resulting service
// combinations.
type Service struct {
	taskInfo       tes.TaskInfoFetcher
	objects        drs.ObjectFetcher
	rates          forex.RateFetcher
	pipeline       *pipeline.Pipeline
	history        store.History
	targetCurrency model.Currency
	timeout        time.Duration
	log            zerolog.Logger
}

func NewService(config Config) (*Service, error) {
	if config.TaskInfo == nil || config.Objects == nil || config.Rates == nil {
		return nil, errors.New("task info, object and rate fetchers are required")
	}

	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	target := config.TargetCurrency
	if target == "" {
		target = model.EUR
	}

	return &Service{
		taskInfo:       config.TaskInfo,
		objects:        config.Objects,
		rates:          config.Rates,
		pipeline:       config.Pipeline,
		history:        config.History,
		targetCurrency: target,
		timeout:        config.Timeout,
		log:            log.With().Str("role", "ranker").Caller().Logger(),
	}, nil
}

func (s *Service) Rank(ctx context.Context, request model.Request) (*model.Response, error) {
	start := time.Now()
	mode := request.EffectiveMode()

	result, err := s.rank(ctx, request, mode)

	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	rankingsTotal.WithLabelValues(mode.Kind().String(), outcome).Inc()
	rankingDuration.Observe(elapsed.Seconds())

	if result != nil {
		combinationsGenerated.Observe(float64(result.Generated))
		for stage, dropped := range result.Dropped {
			combinationsDropped.WithLabelValues(stage).Add(float64(dropped))
		}
	}

	s.record(request, mode, result, err, outcome, elapsed)

	if err != nil {
		s.log.Info().Err(err).Str("outcome", outcome).Dur("elapsed", elapsed).Msg("cannot rank services")
		return nil, err
	}

	return &result.Response, nil
}

//nolint:funlen
func (s *Service) rank(ctx context.Context, request model.Request, mode model.Mode) (*pipeline.Result, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		taskInfo    map[string]model.TaskInfo
		tesWarnings []string
		catalog     = model.ObjectCatalog{}
		drsWarnings []string
	)

	group := errgroup.Group{}
	group.Go(func() error {
		taskInfo, tesWarnings = s.taskInfo.FetchTaskInfo(
			ctx, request.TesURIs, *request.ResourceRequirements, request.AuthToken)
		return nil
	})

	if len(request.ObjectIDs) > 0 {
		group.Go(func() error {
			catalog, drsWarnings = s.objects.FetchObjects(
				ctx, request.DrsURIs, request.ObjectIDs, request.AuthToken)
			return nil
		})
	}

	//nolint:errcheck
	group.Wait()

	endpointFailures.WithLabelValues("tes").Add(float64(len(tesWarnings)))
	endpointFailures.WithLabelValues("drs").Add(float64(len(drsWarnings)))

	if len(taskInfo) == 0 {
		return nil, model.NewResourceUnavailableError(
			"Services cannot be ranked. None of the specified TES instances provided any task info.")
	}

	if err := model.CheckObjectConsistency(request.ObjectIDs, catalog); err != nil {
		return nil, err
	}

	rates := model.ExchangeRates{}
	if mode.RequiresCost() {
		rates = s.fetchRates(ctx, taskInfo)
	}

	result, err := s.pipeline.Run(ctx, pipeline.Input{
		Mode:           mode,
		Requirements:   *request.ResourceRequirements,
		ObjectIDs:      request.ObjectIDs,
		TaskInfo:       taskInfo,
		Objects:        catalog,
		Rates:          rates,
		TargetCurrency: s.targetCurrency,
	})

	collected := make([]string, 0, len(tesWarnings)+len(drsWarnings))
	collected = append(collected, tesWarnings...)
	collected = append(collected, drsWarnings...)

	if result != nil {
		result.Response.Warnings = append(collected, result.Response.Warnings...)
	}

	return result, err
}

// fetchRates returns an empty table when the rate service fails; endpoints quoting a foreign
// currency are then dropped by the cost stage.
func (s *Service) fetchRates(ctx context.Context, taskInfo map[string]model.TaskInfo) model.ExchangeRates {
	currencies := make([]model.Currency, 0)
	seen := make(map[model.Currency]struct{})

	for _, info := range taskInfo {
		for _, costs := range []model.Costs{
			info.EstimatedComputeCosts, info.EstimatedStorageCosts, info.UnitCostsDataTransfer,
		} {
			if _, ok := seen[costs.Currency]; ok || costs.Currency == s.targetCurrency {
				continue
			}

			seen[costs.Currency] = struct{}{}
			currencies = append(currencies, costs.Currency)
		}
	}

	if len(currencies) == 0 {
		return model.ExchangeRates{}
	}

	rates, err := s.rates.FetchRates(ctx, s.targetCurrency, currencies)
	if err != nil {
		endpointFailures.WithLabelValues("forex").Inc()
		s.log.Warn().Err(err).Str("target", string(s.targetCurrency)).Msg("exchange rates unavailable")
		return model.ExchangeRates{}
	}

	return rates
}

func (s *Service) record(
	request model.Request,
	mode model.Mode,
	result *pipeline.Result,
	rankErr error,
	outcome string,
	elapsed time.Duration,
) {
	if s.history == nil {
		return
	}

	record := store.RankingRecord{
		ID:         uuid.New(),
		Mode:       mode.String(),
		Outcome:    outcome,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}

	if requestJSON, err := json.Marshal(request); err == nil {
		record.Request = string(requestJSON)
	}

	if rankErr != nil {
		record.Error = rankErr.Error()
	} else if result != nil {
		record.Combinations = len(result.Response.ServiceCombinations)
		record.Warnings = len(result.Response.Warnings)

		if responseJSON, err := json.Marshal(result.Response); err == nil {
			record.Response = string(responseJSON)
		}
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	err := s.history.Record(recordCtx, record)
	if err != nil {
		s.log.Error().Err(err).Str("id", record.ID.String()).Msg("cannot save ranking record")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return store.OutcomeRanked
	case model.IsValidationError(err):
		return store.OutcomeInvalid
	case model.IsResourceUnavailableError(err):
		return store.OutcomeUnavailable
	default:
		return store.OutcomeFailed
	}
}
