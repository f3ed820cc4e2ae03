package drs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"testribute/model"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/semaphore"
)

type Config struct {
	RetryCount     int
	RetryWait      time.Duration
	RetryWaitMax   time.Duration
	Timeout        time.Duration
	MaxConcurrency int64
}

// Client looks up object metadata at DRS instances.
type Client struct {
	client  *resty.Client
	timeout time.Duration
	sem     *semaphore.Weighted
	log     zerolog.Logger
}

var errNotFound = errors.New("object not found")

type lookup struct {
	uri      string
	objectID string
}

func NewClient(config Config) *Client {
	client := resty.New()
	client.SetRetryCount(config.RetryCount).SetRetryWaitTime(config.RetryWait).SetRetryMaxWaitTime(config.RetryWaitMax).
		SetRetryAfter(nil).
		AddRetryCondition(
			func(r *resty.Response, err error) bool {
				return r.StatusCode() >= 500 || r.StatusCode() == 429
			},
		)

	concurrency := config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Client{
		client:  client,
		timeout: config.Timeout,
		sem:     semaphore.NewWeighted(concurrency),
		log:     log.With().Str("module", "drs").Caller().Logger(),
	}
}

// FetchObjects looks up every object at every endpoint. An object missing from an endpoint is
// simply absent from the catalog; any other failure is reported as a warning.
func (c *Client) FetchObjects(
	ctx context.Context,
	uris []string,
	objectIDs []string,
	token string,
) (model.ObjectCatalog, []string) {
	uniqueURIs := dedup(uris)
	uniqueIDs := dedup(objectIDs)

	catalog := make(model.ObjectCatalog, len(uniqueIDs))
	failures := make(map[lookup]error)

	var mutex sync.Mutex
	var wg sync.WaitGroup

	for _, uri := range uniqueURIs {
		for _, objectID := range uniqueIDs {
			key := lookup{uri: uri, objectID: objectID}
			wg.Add(1)

			go func() {
				defer wg.Done()
				object, err := c.fetch(ctx, key.uri, key.objectID, token)

				mutex.Lock()
				defer mutex.Unlock()

				switch {
				case errors.Is(err, errNotFound):
					c.log.Debug().Str("uri", key.uri).Str("objectID", key.objectID).Msg("object not present")
				case err != nil:
					failures[key] = err
				default:
					if catalog[key.objectID] == nil {
						catalog[key.objectID] = make(map[string]model.DrsObject)
					}
					catalog[key.objectID][key.uri] = *object
				}
			}()
		}
	}

	wg.Wait()

	warnings := make([]string, 0, len(failures))
	for _, uri := range uniqueURIs {
		for _, objectID := range uniqueIDs {
			err, ok := failures[lookup{uri: uri, objectID: objectID}]
			if !ok {
				continue
			}

			c.log.Warn().Err(err).Str("uri", uri).Str("objectID", objectID).Msg("DRS instance unavailable")
			warnings = append(warnings,
				fmt.Sprintf("DRS unavailable: object '%s' could not be retrieved from '%s'.", objectID, uri))
		}
	}

	return catalog, warnings
}

func (c *Client) fetch(ctx context.Context, uri string, objectID string, token string) (*model.DrsObject, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "cannot acquire semaphore")
	}
	defer c.sem.Release(1)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	request := c.client.R().SetContext(ctx).SetHeader("Accept", "application/json")
	if token != "" {
		request.SetAuthToken(token)
	}

	response, err := request.Get(strings.TrimSuffix(uri, "/") + "/objects/" + url.PathEscape(objectID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to request object")
	}

	if response.StatusCode() == http.StatusNotFound {
		return nil, errNotFound
	}

	if response.IsError() {
		return nil, errors.Errorf("unexpected status %s", response.Status())
	}

	object := model.DrsObject{}
	if err := json.Unmarshal(response.Body(), &object); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal object")
	}

	if object.Size < 0 {
		return nil, errors.Errorf("negative object size %d", object.Size)
	}

	c.log.Debug().Str("uri", uri).Str("objectID", objectID).Str("size", humanize.Bytes(uint64(object.Size))).
		Int("accessMethods", len(object.AccessMethods)).Dur("timeSpent", response.Time()).Msg("received object")

	return &object, nil
}

func dedup(values []string) []string {
	result := slices.Clone(values)
	slices.Sort(result)
	return slices.Compact(result)
}
