package forex

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"testribute/model"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slices"
)

// Rates returned by a RateFetcher are quoted as units of the keyed currency per one unit of
// the target currency.
type RateFetcher interface {
	FetchRates(ctx context.Context, target model.Currency, currencies []model.Currency) (model.ExchangeRates, error)
}

type MockRateFetcher struct {
	mock.Mock
}

//nolint:all
func (m *MockRateFetcher) FetchRates(ctx context.Context, target model.Currency, currencies []model.Currency) (model.ExchangeRates, error) {
	args := m.Called(ctx, target, currencies)
	rates, _ := args.Get(0).(model.ExchangeRates)
	return rates, args.Error(1)
}

const bitcoinProxy = model.USD

type Config struct {
	FiatURL         string
	BitcoinURL      string
	RefreshInterval time.Duration
	RetryCount      int
	RetryWait       time.Duration
	RetryWaitMax    time.Duration
}

type fiatResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

type bitcoinResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

type cachedRates struct {
	rates     map[model.Currency]float64
	fetchedAt time.Time
}

type Resolver struct {
	client          *resty.Client
	fiatURL         string
	bitcoinURL      string
	refreshInterval time.Duration
	byBase          map[model.Currency]cachedRates
	bitcoinPrice    cachedRates
	cacheMutex      sync.RWMutex
	now             func() time.Time
	log             zerolog.Logger
}

func NewResolver(config Config) *Resolver {
	client := resty.New()
	client.SetRetryCount(config.RetryCount).SetRetryWaitTime(config.RetryWait).SetRetryMaxWaitTime(config.RetryWaitMax).
		SetRetryAfter(nil).
		AddRetryCondition(
			func(r *resty.Response, err error) bool {
				return r.StatusCode() >= 500 || r.StatusCode() == 429
			},
		)

	return &Resolver{
		client:          client,
		fiatURL:         strings.TrimSuffix(config.FiatURL, "/"),
		bitcoinURL:      config.BitcoinURL,
		refreshInterval: config.RefreshInterval,
		byBase:          make(map[model.Currency]cachedRates),
		now:             time.Now,
		log:             log.With().Str("module", "forex").Caller().Logger(),
	}
}

// Start refreshes every cached rate table in the background until ctx is done.
func (r *Resolver) Start(ctx context.Context) {
	if r.refreshInterval <= 0 {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.refreshInterval):
				err := r.refresh(ctx)
				if err != nil {
					r.log.Error().Err(err).Msg("failed to refresh exchange rates")
				}
			}
		}
	}()
}

func (r *Resolver) refresh(ctx context.Context) error {
	r.cacheMutex.RLock()
	bases := make([]model.Currency, 0, len(r.byBase))
	for base := range r.byBase {
		bases = append(bases, base)
	}
	hasBitcoin := r.bitcoinPrice.rates != nil
	r.cacheMutex.RUnlock()

	for _, base := range bases {
		if _, err := r.fetchFiat(ctx, base); err != nil {
			return err
		}
	}

	if hasBitcoin {
		if _, err := r.fetchBitcoinPrice(ctx); err != nil {
			return err
		}
	}

	r.log.Debug().Int("bases", len(bases)).Bool("bitcoin", hasBitcoin).Msg("refreshed exchange rates")
	return nil
}

// FetchRates returns the rates needed to convert each of the currencies into target. Currencies
// that cannot be converted are absent from the result.
func (r *Resolver) FetchRates(
	ctx context.Context,
	target model.Currency,
	currencies []model.Currency,
) (model.ExchangeRates, error) {
	result := make(model.ExchangeRates)

	wanted := make([]model.Currency, 0, len(currencies))
	for _, currency := range currencies {
		if currency == target || currency == model.Arbitrary || slices.Contains(wanted, currency) {
			continue
		}

		wanted = append(wanted, currency)
	}

	if len(wanted) == 0 || target == model.Arbitrary {
		return result, nil
	}

	if target == model.BTC {
		return r.bitcoinRates(ctx, wanted)
	}

	fiat, err := r.cachedFiat(ctx, target)
	if err != nil {
		return nil, err
	}

	for _, currency := range wanted {
		if currency == model.BTC {
			continue
		}

		if rate, ok := fiat[currency]; ok {
			result[currency] = rate
		}
	}

	if slices.Contains(wanted, model.BTC) {
		price, err := r.cachedBitcoinPrice(ctx)
		if err != nil {
			return nil, err
		}

		proxyRate := 1.0
		if target != bitcoinProxy {
			rate, ok := fiat[bitcoinProxy]
			if !ok {
				return result, nil
			}

			proxyRate = rate
		}

		// BTC per target unit = BTC per proxy unit * proxy units per target unit
		result[model.BTC] = proxyRate / price
	}

	return result, nil
}

func (r *Resolver) bitcoinRates(ctx context.Context, wanted []model.Currency) (model.ExchangeRates, error) {
	price, err := r.cachedBitcoinPrice(ctx)
	if err != nil {
		return nil, err
	}

	fiat := map[model.Currency]float64{bitcoinProxy: 1}
	for _, currency := range wanted {
		if currency != bitcoinProxy {
			fiat, err = r.cachedFiat(ctx, bitcoinProxy)
			if err != nil {
				return nil, err
			}

			break
		}
	}

	result := make(model.ExchangeRates)
	for _, currency := range wanted {
		if rate, ok := fiat[currency]; ok {
			result[currency] = rate * price
		}
	}

	return result, nil
}

func (r *Resolver) fresh(entry cachedRates) bool {
	if entry.rates == nil {
		return false
	}

	return r.refreshInterval <= 0 || r.now().Sub(entry.fetchedAt) < r.refreshInterval
}

func (r *Resolver) cachedFiat(ctx context.Context, base model.Currency) (map[model.Currency]float64, error) {
	r.cacheMutex.RLock()
	entry, ok := r.byBase[base]
	r.cacheMutex.RUnlock()

	if ok && r.fresh(entry) {
		return entry.rates, nil
	}

	return r.fetchFiat(ctx, base)
}

func (r *Resolver) fetchFiat(ctx context.Context, base model.Currency) (map[model.Currency]float64, error) {
	got, err := r.client.R().SetContext(ctx).
		SetQueryParam("from", string(base)).
		Get(r.fiatURL + "/latest")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get exchange rates")
	}

	r.log.Debug().Str("base", string(base)).Dur("timeSpent", got.Time()).Str("status", got.Status()).
		Msg("exchange rates response received")

	if got.IsError() {
		return nil, errors.Errorf("failed to get exchange rates: %s", got.Status())
	}

	payload := fiatResponse{}
	if err := json.Unmarshal(got.Body(), &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal exchange rates")
	}

	rates := map[model.Currency]float64{base: 1}
	for code, rate := range payload.Rates {
		currency, err := model.ParseCurrency(code)
		if err != nil || rate <= 0 {
			continue
		}

		rates[currency] = rate
	}

	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.byBase[base] = cachedRates{rates: rates, fetchedAt: r.now()}
	return rates, nil
}

func (r *Resolver) cachedBitcoinPrice(ctx context.Context) (float64, error) {
	r.cacheMutex.RLock()
	entry := r.bitcoinPrice
	r.cacheMutex.RUnlock()

	if r.fresh(entry) {
		return entry.rates[bitcoinProxy], nil
	}

	return r.fetchBitcoinPrice(ctx)
}

// fetchBitcoinPrice returns the price of one bitcoin in the proxy currency.
func (r *Resolver) fetchBitcoinPrice(ctx context.Context) (float64, error) {
	got, err := r.client.R().SetContext(ctx).
		SetQueryParam("currency", string(model.BTC)).
		Get(r.bitcoinURL)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get bitcoin price")
	}

	if got.IsError() {
		return 0, errors.Errorf("failed to get bitcoin price: %s", got.Status())
	}

	payload := bitcoinResponse{}
	if err := json.Unmarshal(got.Body(), &payload); err != nil {
		return 0, errors.Wrap(err, "failed to unmarshal bitcoin price")
	}

	price, err := strconv.ParseFloat(payload.Data.Rates[string(bitcoinProxy)], 64)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse bitcoin price")
	}

	if price <= 0 {
		return 0, errors.Errorf("invalid bitcoin price %v", price)
	}

	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.bitcoinPrice = cachedRates{rates: map[model.Currency]float64{bitcoinProxy: price}, fetchedAt: r.now()}
	return price, nil
}
