package pipeline

import (
	"context"
	"fmt"

	"testribute/model"

	"github.com/rs/zerolog"
)

// Filter prunes candidates before they are estimated and ranked.
type Filter interface {
	Apply(ctx context.Context, candidates []Candidate, table *model.DistanceTable) ([]Candidate, []string)
}

type LocationMatcher interface {
	Match(location model.Location) bool
}

type Locator interface {
	Locate(ctx context.Context, ip string) (*model.Location, error)
}

// LocationFilter keeps only candidates whose execution endpoint is located somewhere the
// matcher accepts. Endpoints that cannot be located are dropped.
type LocationFilter struct {
	Matcher LocationMatcher
	Locator Locator
	Log     zerolog.Logger
}

func (f LocationFilter) Apply(
	ctx context.Context,
	candidates []Candidate,
	table *model.DistanceTable,
) ([]Candidate, []string) {
	verdicts := make(map[string]string)
	kept := make([]Candidate, 0, len(candidates))
	warnings := make([]string, 0)

	for _, candidate := range candidates {
		reason, ok := verdicts[candidate.URIs.TesURI]
		if !ok {
			reason = f.check(ctx, candidate, table)
			verdicts[candidate.URIs.TesURI] = reason

			if reason != "" {
				warnings = append(warnings,
					fmt.Sprintf("Execution endpoint '%s' dropped: %s.", candidate.URIs.TesURI, reason))
			}
		}

		if reason == "" {
			kept = append(kept, candidate)
		}
	}

	return kept, warnings
}

func (f LocationFilter) check(ctx context.Context, candidate Candidate, table *model.DistanceTable) string {
	if candidate.TesIP == "" {
		return "location unknown"
	}

	location, ok := table.Locations[candidate.TesIP]
	if !ok {
		if f.Locator == nil {
			return "location unknown"
		}

		located, err := f.Locator.Locate(ctx, candidate.TesIP)
		if err != nil || located == nil {
			f.Log.Debug().Err(err).Str("ip", candidate.TesIP).Msg("cannot locate execution endpoint")
			return "location unknown"
		}

		location = *located
	}

	if !f.Matcher.Match(location) {
		return fmt.Sprintf("location %s/%s not allowed", location.Continent, location.Country)
	}

	return ""
}
