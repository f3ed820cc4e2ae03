package module

import (
	"testribute/model"

	"golang.org/x/exp/slices"
)

type LocationFilterConfig struct {
	Continent []string `yaml:"continent" mapstructure:"continent"`
	Country   []string `yaml:"country" mapstructure:"country"`
}

func (l LocationFilterConfig) IsEmpty() bool {
	return len(l.Continent) == 0 && len(l.Country) == 0
}

func (l LocationFilterConfig) Match(location model.Location) bool {
	if len(l.Continent) > 0 && !slices.Contains(l.Continent, location.Continent) {
		return false
	}

	if len(l.Country) > 0 && !slices.Contains(l.Country, location.Country) {
		return false
	}

	return true
}
