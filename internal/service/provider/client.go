package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ifuryst/agencylens/internal/metrics"
	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/util"
)

var validate = validator.New()

// client is the HTTP plumbing shared by every adapter: rate limit, circuit
// breakers, request timeout, status mapping and response validation.
// The limiter is shared by the platform, breakers are keyed by external account.
type client struct {
	platform models.Platform
	http     *resty.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

type call struct {
	// key is the external account the call reads, it selects the breaker
	key     string
	method  string
	path    string
	token   string
	query   map[string]string
	headers map[string]string
	body    interface{}
}

func newClient(platform models.Platform, opts Options, logger *zap.Logger) *client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Accept", "application/json")

	return &client{
		platform: platform,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		timeout:  opts.Timeout,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

func (c *client) breaker(key string) *gobreaker.CircuitBreaker[[]byte] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[key]; ok {
		return cb
	}
	cb := newBreaker(string(c.platform)+"/"+key, c.logger)
	c.breakers[key] = cb
	return cb
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// auth and schema problems say nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Provider circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// do sends the call and decodes a validated response into out
func (c *client) do(ctx context.Context, cl call, out interface{}) error {
	if cl.token == "" {
		return authRequired(c.platform, "no access token")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Platform: c.platform, Message: fmt.Sprintf("rate limit wait: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, err := c.breaker(cl.key).Execute(func() ([]byte, error) {
		return c.send(ctx, cl)
	})
	metrics.ProviderLatency.WithLabelValues(string(c.platform)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ProviderRequests.WithLabelValues(string(c.platform), "rejected").Inc()
			return &APIError{Platform: c.platform, Message: "circuit breaker: " + err.Error(), Retryable: true}
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return invalidResponse(c.platform, "decode: %v", err)
	}
	if err := validate.Struct(out); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return invalidResponse(c.platform, "field [%s] failed rule [%s]", vErrs[0].Namespace(), vErrs[0].Tag())
		}
		return invalidResponse(c.platform, "%v", err)
	}
	return nil
}

func (c *client) send(ctx context.Context, cl call) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(cl.token).
		SetQueryParams(cl.query).
		SetHeaders(cl.headers)
	if cl.body != nil {
		req.SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(string(c.platform), "error").Inc()
		return nil, &APIError{Platform: c.platform, Message: err.Error(), Retryable: true}
	}

	code := resp.StatusCode()
	metrics.ProviderRequests.WithLabelValues(string(c.platform), strconv.Itoa(code/100)+"xx").Inc()

	snippet := util.Truncate(string(resp.Body()), 200)
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, authRequired(c.platform, "status %d: %s", code, snippet)
	case code == http.StatusTooManyRequests || code >= 500:
		return nil, &APIError{Platform: c.platform, StatusCode: code, Message: snippet, Retryable: true}
	case code >= 400:
		return nil, &APIError{Platform: c.platform, StatusCode: code, Message: snippet}
	}

	c.logger.Debug("Provider call completed",
		zap.String("platform", string(c.platform)),
		zap.String("path", cl.path),
		zap.Int("status", code))
	return resp.Body(), nil
}
