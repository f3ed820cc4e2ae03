package pipeline

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"testribute/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// HostResolver is satisfied by *net.Resolver.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DistanceResolver geolocates a batch of IPs and returns pairwise distances in km.
type DistanceResolver interface {
	ResolveDistances(ctx context.Context, ips []string) (*model.DistanceTable, error)
}

type slot struct {
	combination int
	objectID    string
}

type ipLookup struct {
	hosts HostResolver
	cache map[string]string
	log   zerolog.Logger
}

func (l *ipLookup) resolve(ctx context.Context, rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		l.log.Debug().Str("url", rawURL).Msg("cannot extract host from url")
		return "", false
	}

	host := parsed.Hostname()
	if ip, ok := l.cache[host]; ok {
		return ip, ip != ""
	}

	addresses, err := l.hosts.LookupHost(ctx, host)
	if err != nil || len(addresses) == 0 {
		l.log.Debug().Err(err).Str("host", host).Msg("cannot resolve host")
		l.cache[host] = ""
		return "", false
	}

	ip := addresses[0]
	for _, address := range addresses {
		if parsedIP := net.ParseIP(address); parsedIP != nil && parsedIP.To4() != nil {
			ip = address
			break
		}
	}

	l.cache[host] = ip
	return ip, true
}

// ResolveDistances annotates every combination with the distance between its execution
// endpoint and each of its access URLs. Each distinct host is looked up once, each
// distinct IP pair is resolved once through a single batch call, and combinations with
// any unresolved distance are dropped with a warning.
//
//nolint:funlen,cyclop
func ResolveDistances(
	ctx context.Context,
	combinations []model.AccessURIs,
	hosts HostResolver,
	resolver DistanceResolver,
	log zerolog.Logger,
) ([]Candidate, *model.DistanceTable, []string, error) {
	lookup := &ipLookup{hosts: hosts, cache: make(map[string]string), log: log}
	pairs := make(map[slot]model.IPPair)
	tesIPs := make([]string, len(combinations))

	for index, combination := range combinations {
		tesIP, ok := lookup.resolve(ctx, combination.TesURI)
		if !ok {
			continue
		}

		tesIPs[index] = tesIP

		for id, accessURL := range combination.Objects {
			objectIP, ok := lookup.resolve(ctx, accessURL)
			if !ok {
				continue
			}

			pairs[slot{combination: index, objectID: id}] = model.NewIPPair(tesIP, objectIP)
		}
	}

	needed := make(map[string]struct{})
	for _, pair := range pairs {
		if !pair.Same() {
			needed[pair.A] = struct{}{}
			needed[pair.B] = struct{}{}
		}
	}

	table := model.NewDistanceTable()

	if len(needed) > 0 {
		ips := maps.Keys(needed)
		slices.Sort(ips)

		resolved, err := resolver.ResolveDistances(ctx, ips)
		switch {
		case err != nil:
			log.Warn().Err(err).Int("ips", len(ips)).Msg("distance lookup failed")
		case resolved != nil:
			table = resolved
		}

		for _, ip := range ips {
			if location, ok := table.Locations[ip]; ok {
				log.Debug().Str("ip", ip).Str("city", location.City).
					Str("region", location.Region).Str("country", location.Country).Msg("located ip")
			}
		}
	}

	memo := make(map[model.IPPair]float64)
	distanceOf := func(pair model.IPPair) (float64, bool) {
		if pair.Same() {
			return 0, true
		}

		if km, ok := memo[pair]; ok {
			return km, true
		}

		km, ok := table.Distances[pair]
		if !ok {
			km, ok = table.Distances[model.IPPair{A: pair.B, B: pair.A}]
		}

		if ok {
			memo[pair] = km
		}

		return km, ok
	}

	candidates := make([]Candidate, 0, len(combinations))
	warnings := make([]string, 0)

	for index, combination := range combinations {
		distances := make(map[string]float64, len(combination.Objects))
		missing := make([]string, 0)
		total := 0.0

		for _, id := range combination.ObjectIDs() {
			pair, ok := pairs[slot{combination: index, objectID: id}]
			if !ok {
				missing = append(missing, id)
				continue
			}

			km, ok := distanceOf(pair)
			if !ok {
				missing = append(missing, id)
				continue
			}

			distances[id] = km
			total += km
		}

		if len(missing) > 0 {
			warning := fmt.Sprintf(
				"Service combination %s dropped: distance could not be determined for object(s) %s.",
				describe(combination), strings.Join(missing, ", "))
			warnings = append(warnings, warning)
			continue
		}

		candidates = append(candidates, Candidate{
			Index:         index,
			URIs:          combination,
			TesIP:         tesIPs[index],
			Distances:     distances,
			TotalDistance: total,
			Cost:          model.UnsetCosts,
			Time:          -1,
		})
	}

	if len(candidates) == 0 {
		return nil, table, warnings, errors.WithStack(model.NewResourceUnavailableError(
			"Services cannot be ranked. No valid service combinations remain after distance resolution."))
	}

	return candidates, table, warnings, nil
}
