package module

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"testribute/model"
	"testribute/resources"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const defaultIPInfoURL = "https://ipinfo.io"

type IPInfoConfig struct {
	BaseURL   string
	Token     string
	RateLimit float64
	Timeout   time.Duration
}

type IPInfoLocator struct {
	Continents map[string]string
	client     *resty.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	log        zerolog.Logger
}

type ipInfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
	Bogon   bool   `json:"bogon"`
}

func NewIPInfoLocator(config IPInfoConfig) (*IPInfoLocator, error) {
	payload := make(map[string]string)

	if err := json.Unmarshal(resources.CountryToContinentJSON, &payload); err != nil {
		return nil, errors.Wrap(err, "ipinfo: failed to unmarshal continents")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultIPInfoURL
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	client := resty.New()
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}

	return &IPInfoLocator{
		Continents: payload,
		client:     client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      config.Token,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.With().Str("module", "ipinfo").Caller().Logger(),
	}, nil
}

func (i *IPInfoLocator) Locate(ctx context.Context, ip string) (*model.Location, error) {
	if net.ParseIP(ip) == nil {
		return nil, errors.Errorf("failed to parse IP address %s", ip)
	}

	if err := i.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "ipinfo: rate limiter wait aborted")
	}

	request := i.client.R().SetContext(ctx).SetHeader("Accept", "application/json")
	if i.token != "" {
		request.SetQueryParam("token", i.token)
	}

	response, err := request.Get(i.baseURL + "/" + ip)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve IP")
	}

	i.log.Debug().Str("ip", ip).Str("status", response.Status()).Dur("timeSpent", response.Time()).
		Msg("ipinfo response received")

	if response.IsError() {
		return nil, errors.Errorf("ipinfo: unexpected status %s for IP %s", response.Status(), ip)
	}

	payload := ipInfoResponse{}
	if err := json.Unmarshal(response.Body(), &payload); err != nil {
		return nil, errors.Wrap(err, "ipinfo: failed to unmarshal response")
	}

	if payload.Bogon || payload.Loc == "" {
		return nil, errors.Errorf("no location found for IP address %s", ip)
	}

	latitude, longitude, err := parseLoc(payload.Loc)
	if err != nil {
		return nil, err
	}

	return &model.Location{
		IP:        ip,
		City:      payload.City,
		Region:    payload.Region,
		Country:   payload.Country,
		Continent: i.Continents[payload.Country],
		Latitude:  latitude,
		Longitude: longitude,
	}, nil
}

func parseLoc(loc string) (float64, float64, error) {
	parts := strings.Split(loc, ",")
	//nolint:gomnd
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("ipinfo: malformed loc %q", loc)
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "ipinfo: malformed latitude in %q", loc)
	}

	longitude, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "ipinfo: malformed longitude in %q", loc)
	}

	return latitude, longitude, nil
}
