package tes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"testribute/model"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/semaphore"
)

const taskInfoPath = "/tasks/task-info"

type Config struct {
	RetryCount     int
	RetryWait      time.Duration
	RetryWaitMax   time.Duration
	Timeout        time.Duration
	MaxConcurrency int64
}

// Client asks TES instances for queue time and cost estimates of a prospective task.
type Client struct {
	client  *resty.Client
	timeout time.Duration
	sem     *semaphore.Weighted
	log     zerolog.Logger
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
		log:     log.With().Str("module", "tes").Caller().Logger(),
	}
}

// FetchTaskInfo queries every endpoint concurrently. Endpoints that fail are left out of the
// result and reported as warnings, in URI order.
func (c *Client) FetchTaskInfo(
	ctx context.Context,
	uris []string,
	requirements model.ResourceRequirements,
	token string,
) (map[string]model.TaskInfo, []string) {
	unique := make(map[string]struct{}, len(uris))
	for _, uri := range uris {
		unique[uri] = struct{}{}
	}

	result := make(map[string]model.TaskInfo, len(unique))
	failures := make(map[string]error)

	var mutex sync.Mutex
	var wg sync.WaitGroup

	for uri := range unique {
		uri := uri
		wg.Add(1)

		go func() {
			defer wg.Done()
			info, err := c.fetch(ctx, uri, requirements, token)

			mutex.Lock()
			defer mutex.Unlock()

			if err != nil {
				failures[uri] = err
				return
			}

			result[uri] = *info
		}()
	}

	wg.Wait()

	failed := maps.Keys(failures)
	slices.Sort(failed)

	warnings := make([]string, 0, len(failed))
	for _, uri := range failed {
		c.log.Warn().Err(failures[uri]).Str("uri", uri).Msg("TES instance unavailable")
		warnings = append(warnings,
			fmt.Sprintf("TES unavailable: task info could not be retrieved from '%s'.", uri))
	}

	return result, warnings
}

func (c *Client) fetch(
	ctx context.Context,
	uri string,
	requirements model.ResourceRequirements,
	token string,
) (*model.TaskInfo, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "cannot acquire semaphore")
	}
	defer c.sem.Release(1)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	request := c.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(requirements)
	if token != "" {
		request.SetAuthToken(token)
	}

	response, err := request.Post(strings.TrimSuffix(uri, "/") + taskInfoPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to request task info")
	}

	c.log.Debug().Str("uri", uri).Str("status", response.Status()).Dur("timeSpent", response.Time()).
		Msg("received task info")

	if response.IsError() {
		return nil, errors.Errorf("unexpected status %s", response.Status())
	}

	info := model.TaskInfo{}
	if err := json.Unmarshal(response.Body(), &info); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal task info")
	}

	if err := validateTaskInfo(info); err != nil {
		return nil, err
	}

	return &info, nil
}

func validateTaskInfo(info model.TaskInfo) error {
	for _, costs := range []model.Costs{
		info.EstimatedComputeCosts, info.EstimatedStorageCosts, info.UnitCostsDataTransfer,
	} {
		if costs.Amount < 0 {
			return errors.Errorf("negative cost %v", costs.Amount)
		}

		if costs.Currency == "" {
			return errors.New("missing currency")
		}
	}

	seconds, err := info.EstimatedQueueTime.Seconds()
	if err != nil {
		return errors.Wrap(err, "invalid queue time")
	}

	if seconds < 0 {
		return errors.Errorf("negative queue time %v", seconds)
	}

	return nil
}
