package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"testribute/model"
	"testribute/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log2 "github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log3 "github.com/rs/zerolog/log"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/exp/slices"
	"golang.org/x/time/rate"
)

const (
	rankRoute     string = "/rank-services"
	rankingsRoute string = "/rankings"
	metricsRoute  string = "/metrics"

	tokenKey             = "auth_token"
	defaultRankingsLimit = 20
	maxRankingsLimit     = 500
	shutdownTimeout      = 10 * time.Second
	problemJSON          = "application/problem+json"
)

var rateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Name: "testribute_requests_rate_limited_total",
	Help: "Ranking requests rejected by the rate limiter",
})

type servicesRanker interface {
	Rank(ctx context.Context, request model.Request) (*model.Response, error)
}

type rankingsLister interface {
	List(ctx context.Context, limit int) ([]store.RankingRecord, error)
}

type errorDetail struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorBody struct {
	Code    int           `json:"code"`
	Errors  []errorDetail `json:"errors"`
	Message string        `json:"message"`
}

func writeError(c echo.Context, code int, reason string, message string) error {
	body := errorBody{
		Code:    code,
		Errors:  []errorDetail{},
		Message: "The request caused an error.",
	}

	switch code {
	case http.StatusUnauthorized:
		body.Message = "The request is unauthorized."
	case http.StatusTooManyRequests:
		body.Message = "Too many requests."
	case http.StatusInternalServerError:
		body.Message = "An unexpected error occurred."
	}

	if reason != "" {
		body.Errors = append(body.Errors, errorDetail{Reason: reason, Message: message})
	}

	c.Response().Header().Set(echo.HeaderContentType, problemJSON)
	return c.JSON(code, body)
}

func writeRankError(c echo.Context, err error) error {
	var validationErr *model.ValidationError
	var unavailableErr *model.ResourceUnavailableError

	switch {
	case errors.As(err, &validationErr):
		return writeError(c, http.StatusBadRequest, "ValidationError", validationErr.Message)
	case errors.As(err, &unavailableErr):
		return writeError(c, http.StatusBadRequest, "ResourceUnavailableError", unavailableErr.Message)
	case errors.Is(err, model.ErrUnauthorized):
		return writeError(c, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		log3.Error().Err(err).Str("role", "http_api").Msg("unexpected error while ranking services")
		return writeError(c, http.StatusInternalServerError, "", "")
	}
}

func rankServicesHandler(c echo.Context, ranker servicesRanker) error {
	var request model.Request

	err := c.Bind(&request)
	if err != nil {
		if model.IsValidationError(err) {
			return writeRankError(c, err)
		}

		return writeError(c, http.StatusBadRequest, "BadRequest", "The request body could not be parsed.")
	}

	if token, ok := c.Get(tokenKey).(string); ok {
		request.AuthToken = token
	}

	response, err := ranker.Rank(c.Request().Context(), request)
	if err != nil {
		return writeRankError(c, err)
	}

	return c.JSON(http.StatusOK, response)
}

func listRankingsHandler(c echo.Context, history rankingsLister) error {
	limit := defaultRankingsLimit

	if value := c.QueryParam("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 || parsed > maxRankingsLimit {
			return writeError(c, http.StatusBadRequest, "ValidationError",
				"Invalid 'limit' value passed: '"+value+"'.")
		}

		limit = parsed
	}

	records, err := history.List(c.Request().Context(), limit)
	if err != nil {
		return writeRankError(c, err)
	}

	return c.JSON(http.StatusOK, records)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || strings.ToLower(header[:len(prefix)]) != prefix {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}

func authMiddleware(security securityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			token := bearerToken(auth)

			if auth != "" && token == "" {
				return writeError(c, http.StatusUnauthorized, "Unauthorized", "Malformed 'Authorization' header.")
			}

			if security.AuthorizationRequired && token == "" {
				return writeError(c, http.StatusUnauthorized, "Unauthorized", "No bearer token provided.")
			}

			if token != "" && len(security.Tokens) > 0 && !slices.Contains(security.Tokens, token) {
				return writeError(c, http.StatusUnauthorized, "Unauthorized", "Invalid auth token.")
			}

			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

func rateLimitMiddleware(limiter *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				rateLimited.Inc()
				return writeError(c, http.StatusTooManyRequests, "TooManyRequests", "Rate limit exceeded.")
			}

			return next(c)
		}
	}
}

func newLimiter(server serverConfig) *rate.Limiter {
	if server.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	burst := server.Burst
	if burst <= 0 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(server.RateLimit), burst)
}

func newAPI(ranker servicesRanker, history rankingsLister, cfg *config) *echo.Echo {
	api := echo.New()
	api.HideBanner = true
	echoLogger := lecho.From(
		log3.Logger,
		lecho.WithLevel(log2.INFO),
		lecho.WithField("role", "http_api"),
		lecho.WithTimestamp(),
	)
	api.Logger = echoLogger
	api.Use(lecho.Middleware(lecho.Config{Logger: echoLogger}))
	api.Use(middleware.Recover())

	auth := authMiddleware(cfg.Security)

	api.POST(
		rankRoute, func(c echo.Context) error {
			return rankServicesHandler(c, ranker)
		},
		rateLimitMiddleware(newLimiter(cfg.Server)), auth,
	)

	api.GET(
		rankingsRoute, func(c echo.Context) error {
			return listRankingsHandler(c, history)
		},
		auth,
	)

	api.GET(metricsRoute, echo.WrapHandler(promhttp.Handler()))

	return api
}

func setupAPI(ctx context.Context, ranker servicesRanker, history rankingsLister, cfg *config) {
	api := newAPI(ranker, history, cfg)
	log := log3.With().Str("role", "main").Caller().Logger()

	go func() {
		err := api.Start(cfg.Server.Address)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("cannot start ranking api")
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := api.Shutdown(shutdownCtx)
		if err != nil {
			log.Error().Err(err).Msg("cannot shut down ranking api")
		}
	}()
}
