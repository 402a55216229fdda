package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// HTTPClientConfig holds transport settings shared by the provider clients.
type HTTPClientConfig struct {
	Timeout   time.Duration // per-request timeout
	RateLimit int           // requests per minute, 0 = unlimited
	UserAgent string
}

// HTTPClient is a thin resty wrapper with a request ceiling and logging.
// It never retries on its own: retry policy belongs to the caller.
type HTTPClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(float64(cfg.RateLimit) / 60)
	}
	limiter := rate.NewLimiter(limit, 1)

	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			if err := limiter.Wait(r.Context()); err != nil {
				logger.Warn("rate limiter wait failed", zap.Error(err))
				return err
			}
			if cfg.UserAgent != "" {
				r.SetHeader("User-Agent", cfg.UserAgent)
			}
			logger.Debug("outgoing request", zap.String("url", r.URL))
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("http request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("url", resp.Request.URL),
				)
			}
			return nil
		})

	return &HTTPClient{
		client:  restyClient,
		logger:  logger,
		limiter: limiter,
	}
}

// Get issues a GET with the given query and decodes a JSON body into out.
// Non-2xx responses come back as *HTTPError.
func (c *HTTPClient) Get(ctx context.Context, url string, query map[string]string, out interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return &HTTPError{Code: resp.StatusCode(), Message: resp.String()}
	}

	return nil
}

func (c *HTTPClient) Close() error {
	return c.client.Close()
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Code, e.Message)
}
