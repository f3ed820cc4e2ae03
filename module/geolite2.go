package module

import (
	"context"
	"net"

	"testribute/model"

	"github.com/oschwald/geoip2-golang"
	"github.com/pkg/errors"
)

type GeoLite2Locator struct {
	db *geoip2.Reader
}

func NewGeoLite2Locator(path string) (*GeoLite2Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open GeoLite2 database %s", path)
	}

	return &GeoLite2Locator{
		db: db,
	}, nil
}

func (g GeoLite2Locator) ResolveIP(ip net.IP) (*geoip2.City, error) {
	city, err := g.db.City(ip)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve IP")
	}

	return city, nil
}

func (g GeoLite2Locator) Locate(_ context.Context, ip string) (*model.Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, errors.Errorf("failed to parse IP address %s", ip)
	}

	city, err := g.ResolveIP(parsed)
	if err != nil {
		return nil, err
	}

	if city.Country.IsoCode == "" && city.Location.Latitude == 0 && city.Location.Longitude == 0 {
		return nil, errors.Errorf("no location found for IP address %s", ip)
	}

	location := &model.Location{
		IP:        ip,
		City:      city.City.Names["en"],
		Country:   city.Country.IsoCode,
		Continent: city.Continent.Code,
		Latitude:  city.Location.Latitude,
		Longitude: city.Location.Longitude,
	}

	if len(city.Subdivisions) > 0 {
		location.Region = city.Subdivisions[0].Names["en"]
	}

	return location, nil
}

func (g GeoLite2Locator) Close() error {
	return errors.Wrap(g.db.Close(), "failed to close GeoLite2 database")
}
