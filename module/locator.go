package module

import (
	"context"
	"sync"

	"testribute/model"

	"github.com/golang/geo/s2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

const (
	earthRadiusKm     = 6371.0088
	maxParallelLookup = 8
)

type Locator interface {
	Locate(ctx context.Context, ip string) (*model.Location, error)
}

type MockLocator struct {
	mock.Mock
}

//nolint:all
func (m *MockLocator) Locate(ctx context.Context, ip string) (*model.Location, error) {
	args := m.Called(ctx, ip)
	location, _ := args.Get(0).(*model.Location)
	return location, args.Error(1)
}

// ChainLocator asks each locator in turn and returns the first answer.
type ChainLocator []Locator

func (c ChainLocator) Locate(ctx context.Context, ip string) (*model.Location, error) {
	if len(c) == 0 {
		return nil, errors.New("no locator configured")
	}

	var lastErr error

	for _, locator := range c {
		location, err := locator.Locate(ctx, ip)
		if err == nil && location != nil {
			return location, nil
		}

		lastErr = err
	}

	return nil, errors.Wrapf(lastErr, "failed to locate IP address %s", ip)
}

// GeodesicKm is the great-circle distance between two locations.
func GeodesicKm(a, b model.Location) float64 {
	from := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	to := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return from.Distance(to).Radians() * earthRadiusKm
}

type GeoDistanceResolver struct {
	locator Locator
	log     zerolog.Logger
}

func NewGeoDistanceResolver(locator Locator) *GeoDistanceResolver {
	return &GeoDistanceResolver{
		locator: locator,
		log:     log.With().Str("module", "distance").Caller().Logger(),
	}
}

// ResolveDistances locates every IP once and computes the distance between each pair of
// located IPs. IPs that cannot be located are left out of the table.
func (g *GeoDistanceResolver) ResolveDistances(ctx context.Context, ips []string) (*model.DistanceTable, error) {
	table := model.NewDistanceTable()

	unique := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		unique[ip] = struct{}{}
	}

	var mutex sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelLookup)

	for ip := range unique {
		ip := ip

		group.Go(func() error {
			location, err := g.locator.Locate(groupCtx, ip)
			if err != nil {
				g.log.Debug().Err(err).Str("ip", ip).Msg("cannot locate ip")
				return nil
			}

			mutex.Lock()
			defer mutex.Unlock()
			table.Locations[ip] = *location
			return nil
		})
	}

	//nolint:errcheck
	group.Wait()

	located := maps.Keys(table.Locations)
	slices.Sort(located)

	for i := 0; i < len(located); i++ {
		for j := i + 1; j < len(located); j++ {
			pair := model.NewIPPair(located[i], located[j])
			table.Distances[pair] = GeodesicKm(table.Locations[located[i]], table.Locations[located[j]])
		}
	}

	g.log.Debug().Int("requested", len(unique)).Int("located", len(located)).Msg("resolved distances")

	if len(unique) > 0 && len(located) == 0 {
		return table, errors.New("none of the IP addresses could be located")
	}

	return table, nil
}
