package module

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoLite2Locator_Locate(t *testing.T) {
	path := os.Getenv("GEOLITE2_PATH")
	if path == "" {
		t.Skip("GEOLITE2_PATH is not set")
	}

	assert := assert.New(t)
	locator, err := NewGeoLite2Locator(path)
	assert.NoError(err)
	defer locator.Close()

	location, err := locator.Locate(context.TODO(), "66.66.66.66")
	assert.NoError(err)
	assert.Equal("US", location.Country)
	assert.Equal("NA", location.Continent)

	_, err = locator.Locate(context.TODO(), "not-an-ip")
	assert.Error(err)
}

func TestNewGeoLite2Locator_MissingFile(t *testing.T) {
	_, err := NewGeoLite2Locator("/nonexistent/GeoLite2-City.mmdb")
	assert.Error(t, err)
}
