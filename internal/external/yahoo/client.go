package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/rsrank/pkg/config"
	"github.com/wonny/rsrank/pkg/httputil"
	"github.com/wonny/rsrank/pkg/logger"
	"github.com/wonny/rsrank/pkg/metrics"
)

// ErrNotFound is returned for symbols the chart/quote endpoints do not know
var ErrNotFound = errors.New("symbol not found")

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, cfg config.YahooConfig, m *metrics.Registry, log *logger.Logger) *Client {
	log = log.Component("yahoo")

	settings := gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 404 는 종목 문제, 서비스 장애가 아님
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.SetBreakerState(name, int(to))
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	burst := int(cfg.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// getJSON performs a throttled, breaker-guarded GET and decodes the JSON body into dest
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		b, err := c.httpClient.GetBody(ctx, fullURL)
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return b, err
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body.([]byte), dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// apiError is the error object Yahoo embeds in otherwise successful responses
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) err(symbol string) error {
	if e == nil {
		return nil
	}
	if e.Code == "Not Found" {
		return fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	return fmt.Errorf("%s: yahoo error %s: %s", symbol, e.Code, e.Description)
}
