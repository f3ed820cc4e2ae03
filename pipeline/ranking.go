package pipeline

import (
	"math/rand"
	"strings"

	"testribute/model"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type Normalization string

const (
	// NormalizeByMin divides each vector by its smallest value.
	NormalizeByMin Normalization = "min"
	// NormalizeByFirst divides each vector by its first value, which depends on candidate order.
	NormalizeByFirst Normalization = "first"
)

func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(strings.ToLower(s)) {
	case NormalizeByMin, "":
		return NormalizeByMin, nil
	case NormalizeByFirst:
		return NormalizeByFirst, nil
	default:
		return "", errors.Errorf("unsupported normalization %q", s)
	}
}

func normalize(values []float64, normalization Normalization) []float64 {
	normalized := make([]float64, len(values))
	if len(values) == 0 {
		return normalized
	}

	reference := values[0]
	maximum := values[0]

	for _, value := range values {
		if normalization != NormalizeByFirst && value < reference {
			reference = value
		}

		if value > maximum {
			maximum = value
		}
	}

	if reference == 0 {
		reference = maximum
	}

	if reference == 0 {
		return normalized
	}

	for i, value := range values {
		normalized[i] = value / reference
	}

	return normalized
}

// Score returns w*time' + (1-w)*cost' per candidate, or -1 for every candidate in random mode.
func Score(candidates []Candidate, mode model.Mode, normalization Normalization) []float64 {
	scores := make([]float64, len(candidates))

	if mode.IsRandom() {
		for i := range scores {
			scores[i] = -1
		}

		return scores
	}

	weight := mode.Float()

	if mode.RequiresCost() {
		costs := make([]float64, len(candidates))
		for i, candidate := range candidates {
			costs[i] = candidate.Cost.Amount
		}

		for i, cost := range normalize(costs, normalization) {
			scores[i] += (1 - weight) * cost
		}
	}

	if mode.RequiresTime() {
		times := make([]float64, len(candidates))
		for i, candidate := range candidates {
			times[i] = candidate.Time
		}

		for i, time := range normalize(times, normalization) {
			scores[i] += weight * time
		}
	}

	return scores
}

// Rank orders candidates by ascending score, keeping generation order on ties. In random
// mode ranks come from a permutation drawn from rng.
func Rank(
	candidates []Candidate,
	mode model.Mode,
	normalization Normalization,
	rng *rand.Rand,
) []model.ServiceCombination {
	ranked := make([]model.ServiceCombination, len(candidates))
	for i, candidate := range candidates {
		ranked[i] = model.NewServiceCombination(candidate.URIs)
		ranked[i].CostEstimate = candidate.Cost
		ranked[i].TimeEstimate = candidate.Time
	}

	if mode.IsRandom() {
		for i, position := range rng.Perm(len(ranked)) {
			ranked[i].Rank = position + 1
		}

		slices.SortFunc(ranked, func(a, b model.ServiceCombination) bool {
			return a.Rank < b.Rank
		})

		return ranked
	}

	scores := Score(candidates, mode, normalization)
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) bool {
		return scores[a] < scores[b]
	})

	result := make([]model.ServiceCombination, len(order))
	for position, index := range order {
		result[position] = ranked[index]
		result[position].Rank = position + 1
	}

	return result
}
