package main

import (
	"time"

	"testribute/module"
)

type config struct {
	Log      logConfig      `yaml:"log" mapstructure:"log"`
	Server   serverConfig   `yaml:"server" mapstructure:"server"`
	Security securityConfig `yaml:"security" mapstructure:"security"`
	Ranking  rankingConfig  `yaml:"ranking" mapstructure:"ranking"`
	TES      clientConfig   `yaml:"tes" mapstructure:"tes"`
	DRS      clientConfig   `yaml:"drs" mapstructure:"drs"`
	Geo      geoConfig      `yaml:"geo" mapstructure:"geo"`
	Forex    forexConfig    `yaml:"forex" mapstructure:"forex"`
	Filter   filterConfig   `yaml:"filter" mapstructure:"filter"`
	History  historyConfig  `yaml:"history" mapstructure:"history"`
}

type logConfig struct {
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
	Level  string `yaml:"level" mapstructure:"level"`
}

type serverConfig struct {
	Address   string  `yaml:"address" mapstructure:"address"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst     int     `yaml:"burst" mapstructure:"burst"`
}

type securityConfig struct {
	AuthorizationRequired bool     `yaml:"authorization_required" mapstructure:"authorization_required"`
	Tokens                []string `yaml:"tokens" mapstructure:"tokens"`
}

type rankingConfig struct {
	TargetCurrency string        `yaml:"target_currency" mapstructure:"target_currency"`
	Normalization  string        `yaml:"normalization" mapstructure:"normalization"`
	RandomSeed     int64         `yaml:"random_seed" mapstructure:"random_seed"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxConcurrency int64         `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

type clientConfig struct {
	RetryCount   int           `yaml:"retry_count" mapstructure:"retry_count"`
	RetryWait    time.Duration `yaml:"retry_wait" mapstructure:"retry_wait"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max" mapstructure:"retry_wait_max"`
}

type geoConfig struct {
	GeoLite2Path    string  `yaml:"geolite2_path" mapstructure:"geolite2_path"`
	IPInfoEnabled   bool    `yaml:"ipinfo_enabled" mapstructure:"ipinfo_enabled"`
	IPInfoToken     string  `yaml:"ipinfo_token" mapstructure:"ipinfo_token"`
	IPInfoRateLimit float64 `yaml:"ipinfo_rate_limit" mapstructure:"ipinfo_rate_limit"`
}

type forexConfig struct {
	FiatURL         string        `yaml:"fiat_url" mapstructure:"fiat_url"`
	BitcoinURL      string        `yaml:"bitcoin_url" mapstructure:"bitcoin_url"`
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
	RetryCount      int           `yaml:"retry_count" mapstructure:"retry_count"`
	RetryWait       time.Duration `yaml:"retry_wait" mapstructure:"retry_wait"`
	RetryWaitMax    time.Duration `yaml:"retry_wait_max" mapstructure:"retry_wait_max"`
}

type filterConfig struct {
	Location module.LocationFilterConfig `yaml:"location" mapstructure:"location"`
}

type historyConfig struct {
	Enabled                  bool   `yaml:"enabled" mapstructure:"enabled"`
	DatabaseConnectionString string `yaml:"database_connection_string" mapstructure:"database_connection_string"`
	Capacity                 int    `yaml:"capacity" mapstructure:"capacity"`
}

//nolint:gomnd
func defaultConfig() config {
	retries := clientConfig{
		RetryCount:   2,
		RetryWait:    100 * time.Millisecond,
		RetryWaitMax: time.Second,
	}

	return config{
		Log: logConfig{
			Pretty: true,
			Level:  "info",
		},
		Server: serverConfig{
			Address:   ":8080",
			RateLimit: 10,
			Burst:     20,
		},
		Security: securityConfig{
			AuthorizationRequired: false,
			Tokens:                []string{},
		},
		Ranking: rankingConfig{
			TargetCurrency: "EUR",
			Normalization:  "min",
			RandomSeed:     0,
			Timeout:        3 * time.Second,
			MaxConcurrency: 16,
		},
		TES: retries,
		DRS: retries,
		Geo: geoConfig{
			GeoLite2Path:    "",
			IPInfoEnabled:   true,
			IPInfoToken:     "",
			IPInfoRateLimit: 5,
		},
		Forex: forexConfig{
			FiatURL:         "https://api.frankfurter.app",
			BitcoinURL:      "https://api.coinbase.com/v2/exchange-rates",
			RefreshInterval: time.Hour,
			RetryCount:      retries.RetryCount,
			RetryWait:       retries.RetryWait,
			RetryWaitMax:    retries.RetryWaitMax,
		},
		Filter: filterConfig{
			Location: module.LocationFilterConfig{
				Continent: []string{},
				Country:   []string{},
			},
		},
		History: historyConfig{
			Enabled:                  false,
			DatabaseConnectionString: "host=localhost port=5432 user=postgres password=postgres dbname=postgres",
			Capacity:                 1000,
		},
	}
}
