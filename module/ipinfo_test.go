package module

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newIPInfoServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "secret", r.URL.Query().Get("token"))

		switch r.URL.Path {
		case "/66.66.66.66":
			_, _ = w.Write([]byte(`{"ip":"66.66.66.66","city":"Buffalo","region":"New York","country":"US","loc":"42.8865,-78.8784"}`))
		case "/192.168.1.1":
			_, _ = w.Write([]byte(`{"ip":"192.168.1.1","bogon":true}`))
		case "/1.1.1.1":
			_, _ = w.Write([]byte(`{"ip":"1.1.1.1","country":"AU","loc":"not-a-location"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
}

func newTestIPInfoLocator(t *testing.T, url string) *IPInfoLocator {
	locator, err := NewIPInfoLocator(IPInfoConfig{BaseURL: url, Token: "secret"})
	assert.NoError(t, err)
	return locator
}

func TestIPInfoLocator_Locate(t *testing.T) {
	assert := assert.New(t)
	server := newIPInfoServer(t)
	defer server.Close()

	location, err := newTestIPInfoLocator(t, server.URL).Locate(context.TODO(), "66.66.66.66")
	assert.NoError(err)
	assert.Equal("US", location.Country)
	assert.Equal("NA", location.Continent)
	assert.Equal("Buffalo", location.City)
	assert.InDelta(42.8865, location.Latitude, 1e-9)
	assert.InDelta(-78.8784, location.Longitude, 1e-9)
}

func TestIPInfoLocator_Locate_Local(t *testing.T) {
	assert := assert.New(t)
	server := newIPInfoServer(t)
	defer server.Close()

	location, err := newTestIPInfoLocator(t, server.URL).Locate(context.TODO(), "192.168.1.1")
	assert.Error(err)
	assert.Nil(location)
}

func TestIPInfoLocator_Locate_Failures(t *testing.T) {
	assert := assert.New(t)
	server := newIPInfoServer(t)
	defer server.Close()
	locator := newTestIPInfoLocator(t, server.URL)

	_, err := locator.Locate(context.TODO(), "1.1.1.1")
	assert.ErrorContains(err, "malformed loc")

	_, err = locator.Locate(context.TODO(), "8.8.8.8")
	assert.ErrorContains(err, "429")

	_, err = locator.Locate(context.TODO(), "not-an-ip")
	assert.Error(err)
}
