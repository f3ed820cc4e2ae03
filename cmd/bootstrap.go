package main

import (
	"context"
	"math/rand"
	"net"
	"os"
	"strings"

	"testribute/model"
	"testribute/module"
	"testribute/module/drs"
	"testribute/module/forex"
	"testribute/module/tes"
	"testribute/pipeline"
	"testribute/role/ranker"
	"testribute/store"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	log3 "github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.uber.org/dig"
	"gopkg.in/yaml.v3"
)

func setConfig(configPath string) (*config, error) {
	log := log3.With().Str("role", "main").Caller().Logger()
	cfg := defaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Warn().Str("config_path", configPath).Msg("config file does not exist, creating new one")

		cfgStr, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "cannot marshal config to yaml")
		}

		err = os.WriteFile(configPath, cfgStr, 0o600)
		if err != nil {
			return nil, errors.Wrap(err, "cannot create default config file")
		}
	}

	err := setDefaults(cfg)
	if err != nil {
		return nil, err
	}

	viper.SetConfigFile(configPath)
	log.Debug().Str("config_path", configPath).Msg("reading config file")

	err = viper.ReadInConfig()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal config")
	}

	return &cfg, nil
}

// setDefaults registers every key of the default config with viper so environment
// variables apply to keys the config file leaves out.
func setDefaults(cfg config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "cannot marshal default config")
	}

	defaults := make(map[string]interface{})

	err = yaml.Unmarshal(raw, &defaults)
	if err != nil {
		return errors.Wrap(err, "cannot unmarshal default config")
	}

	registerDefaults("", defaults)
	return nil
}

func registerDefaults(prefix string, values map[string]interface{}) {
	for key, value := range values {
		if prefix != "" {
			key = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			registerDefaults(key, nested)
			continue
		}

		viper.SetDefault(key, value)
	}
}

func setupLogging(cfg *config) error {
	if cfg.Log.Pretty {
		log3.Logger = log3.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.Wrap(err, "cannot parse log level")
	}

	zerolog.SetGlobalLevel(level)
	return nil
}

func newLocator(cfg *config) module.Locator {
	log := log3.With().Str("role", "main").Caller().Logger()
	locators := module.ChainLocator{}

	if cfg.Geo.GeoLite2Path != "" {
		geolite2, err := module.NewGeoLite2Locator(cfg.Geo.GeoLite2Path)
		if err != nil {
			log.Error().Err(err).Msg("cannot open GeoLite2 database, skipping")
		} else {
			locators = append(locators, geolite2)
		}
	}

	if cfg.Geo.IPInfoEnabled {
		ipinfo, err := module.NewIPInfoLocator(module.IPInfoConfig{
			Token:     cfg.Geo.IPInfoToken,
			RateLimit: cfg.Geo.IPInfoRateLimit,
			Timeout:   cfg.Ranking.Timeout,
		})
		if err != nil {
			log.Error().Err(err).Msg("cannot create ipinfo locator, skipping")
		} else {
			locators = append(locators, ipinfo)
		}
	}

	if len(locators) == 0 {
		log.Warn().Msg("no geolocation source configured, rankings with input objects will fail")
	}

	return locators
}

//nolint:wrapcheck,funlen
func setupDependencies(ctx context.Context, container *dig.Container, configPath string) (*config, error) {
	log := log3.With().Str("role", "main").Caller().Logger()

	cfg, err := setConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot set config")
	}

	err = setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	targetCurrency, err := model.ParseCurrency(cfg.Ranking.TargetCurrency)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse target currency")
	}

	// DI: module.Locator
	err = container.Provide(
		func() module.Locator {
			return newLocator(cfg)
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide locator")
	}

	// DI: pipeline.DistanceResolver
	err = container.Provide(
		func(locator module.Locator) pipeline.DistanceResolver {
			return module.NewGeoDistanceResolver(locator)
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide distance resolver")
	}

	// DI: *pipeline.Pipeline
	err = container.Provide(
		func(distances pipeline.DistanceResolver, locator module.Locator) (*pipeline.Pipeline, error) {
			filters := make([]pipeline.Filter, 0)
			if !cfg.Filter.Location.IsEmpty() {
				filters = append(filters, pipeline.LocationFilter{
					Matcher: cfg.Filter.Location,
					Locator: locator,
					Log:     log3.With().Str("role", "location_filter").Caller().Logger(),
				})
			}

			var randSource func() rand.Source
			if cfg.Ranking.RandomSeed != 0 {
				seed := cfg.Ranking.RandomSeed
				randSource = func() rand.Source {
					return rand.NewSource(seed)
				}
			}

			return pipeline.New(pipeline.Config{
				Hosts:         net.DefaultResolver,
				Distances:     distances,
				Filters:       filters,
				Normalization: pipeline.Normalization(cfg.Ranking.Normalization),
				RandSource:    randSource,
			})
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide pipeline")
	}

	// DI: tes.TaskInfoFetcher
	err = container.Provide(
		func() tes.TaskInfoFetcher {
			return tes.NewClient(tes.Config{
				RetryCount:     cfg.TES.RetryCount,
				RetryWait:      cfg.TES.RetryWait,
				RetryWaitMax:   cfg.TES.RetryWaitMax,
				Timeout:        cfg.Ranking.Timeout,
				MaxConcurrency: cfg.Ranking.MaxConcurrency,
			})
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide TES client")
	}

	// DI: drs.ObjectFetcher
	err = container.Provide(
		func() drs.ObjectFetcher {
			return drs.NewClient(drs.Config{
				RetryCount:     cfg.DRS.RetryCount,
				RetryWait:      cfg.DRS.RetryWait,
				RetryWaitMax:   cfg.DRS.RetryWaitMax,
				Timeout:        cfg.Ranking.Timeout,
				MaxConcurrency: cfg.Ranking.MaxConcurrency,
			})
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide DRS client")
	}

	// DI: forex.RateFetcher
	err = container.Provide(
		func() forex.RateFetcher {
			resolver := forex.NewResolver(forex.Config{
				FiatURL:         cfg.Forex.FiatURL,
				BitcoinURL:      cfg.Forex.BitcoinURL,
				RefreshInterval: cfg.Forex.RefreshInterval,
				RetryCount:      cfg.Forex.RetryCount,
				RetryWait:       cfg.Forex.RetryWait,
				RetryWaitMax:    cfg.Forex.RetryWaitMax,
			})
			resolver.Start(ctx)
			return resolver
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide exchange rate resolver")
	}

	// DI: store.History
	err = container.Provide(
		func() (store.History, error) {
			if !cfg.History.Enabled {
				return &store.InMemoryHistory{Capacity: cfg.History.Capacity}, nil
			}

			db, err := store.OpenPostgres(cfg.History.DatabaseConnectionString)
			if err != nil {
				return nil, err
			}

			return store.NewGormHistory(db)
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide ranking history")
	}

	// DI: *ranker.Service
	err = container.Provide(
		func(
			taskInfo tes.TaskInfoFetcher,
			objects drs.ObjectFetcher,
			rates forex.RateFetcher,
			p *pipeline.Pipeline,
			history store.History,
		) (*ranker.Service, error) {
			return ranker.NewService(ranker.Config{
				TaskInfo:       taskInfo,
				Objects:        objects,
				Rates:          rates,
				Pipeline:       p,
				History:        history,
				TargetCurrency: targetCurrency,
			})
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot provide ranker")
	}

	return cfg, nil
}

func run(ctx context.Context, configPath string) error {
	container := dig.New()

	cfg, err := setupDependencies(ctx, container, configPath)
	if err != nil {
		return errors.Wrap(err, "cannot setup dependencies")
	}

	log := log3.With().Str("role", "main").Caller().Logger()
	log.Info().Str("address", cfg.Server.Address).Msg("starting ranking api")

	err = container.Invoke(
		func(service *ranker.Service, history store.History) {
			setupAPI(ctx, service, history, cfg)
		},
	)
	if err != nil {
		return errors.Wrap(err, "cannot start ranking api")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

func rankOnce(ctx context.Context, configPath string, request model.Request) (*model.Response, error) {
	container := dig.New()

	_, err := setupDependencies(ctx, container, configPath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot setup dependencies")
	}

	var response *model.Response

	err = container.Invoke(
		func(service *ranker.Service) error {
			var err error
			response, err = service.Rank(ctx, request)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	return response, nil
}
