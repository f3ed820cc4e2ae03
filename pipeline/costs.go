package pipeline

import (
	"fmt"

	"testribute/model"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

const bytesKilometersPerUnit = 1e12

type endpointCosts struct {
	compute  float64
	storage  float64
	transfer float64
}

// Convert expresses an amount in the target currency. Rates are units of the quoted
// currency per unit of the target currency.
func Convert(costs model.Costs, target model.Currency, rates model.ExchangeRates) (float64, bool) {
	if costs.Currency == target {
		return costs.Amount, true
	}

	rate, ok := rates[costs.Currency]
	if !ok || rate <= 0 {
		return 0, false
	}

	return costs.Amount / rate, true
}

func convertEndpoint(info model.TaskInfo, target model.Currency, rates model.ExchangeRates) (endpointCosts, []model.Currency) {
	var converted endpointCosts

	missing := make([]model.Currency, 0)
	fields := []struct {
		costs model.Costs
		into  *float64
	}{
		{info.EstimatedComputeCosts, &converted.compute},
		{info.EstimatedStorageCosts, &converted.storage},
		{info.UnitCostsDataTransfer, &converted.transfer},
	}

	for _, field := range fields {
		amount, ok := Convert(field.costs, target, rates)
		if !ok {
			if !slices.Contains(missing, field.costs.Currency) {
				missing = append(missing, field.costs.Currency)
			}

			continue
		}

		*field.into = amount
	}

	return converted, missing
}

// EstimateCosts computes compute + storage + transfer costs in the target currency. An
// endpoint with any cost that cannot be converted is excluded as a whole.
func EstimateCosts(
	candidates []Candidate,
	taskInfo map[string]model.TaskInfo,
	sizes map[string]int64,
	rates model.ExchangeRates,
	target model.Currency,
) ([]Candidate, []string, error) {
	endpoints := make([]string, 0)
	for _, candidate := range candidates {
		if !slices.Contains(endpoints, candidate.URIs.TesURI) {
			endpoints = append(endpoints, candidate.URIs.TesURI)
		}
	}

	slices.Sort(endpoints)

	converted := make(map[string]endpointCosts, len(endpoints))
	warnings := make([]string, 0)

	for _, endpoint := range endpoints {
		info, ok := taskInfo[endpoint]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Execution endpoint '%s' dropped: no task info available.", endpoint))
			continue
		}

		costs, missing := convertEndpoint(info, target, rates)
		if len(missing) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"Execution endpoint '%s' dropped: no exchange rate from %v to %s available.", endpoint, missing, target))
			continue
		}

		converted[endpoint] = costs
	}

	estimated := make([]Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		costs, ok := converted[candidate.URIs.TesURI]
		if !ok {
			continue
		}

		transfer := 0.0
		for id, km := range candidate.Distances {
			transfer += float64(sizes[id]) * km * costs.transfer / bytesKilometersPerUnit
		}

		next := candidate
		next.Cost = model.Costs{
			Amount:   costs.compute + costs.storage + transfer,
			Currency: target,
		}
		estimated = append(estimated, next)
	}

	if len(estimated) == 0 {
		return nil, warnings, errors.WithStack(model.NewResourceUnavailableError(
			"Services cannot be ranked. No execution endpoint quotes costs in a currency convertible to %s.", target))
	}

	return estimated, warnings, nil
}
