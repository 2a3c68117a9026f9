// Package fetcher issues modality-options requests against the retailer
// endpoint using a Colly collector.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/grocerytrack/modality-scout/internal/availability"
	"github.com/grocerytrack/modality-scout/internal/jitter"
)

// Config controls request behavior.
type Config struct {
	Endpoint   string
	TimeoutMin time.Duration
	TimeoutMax time.Duration
	UserAgents []string
}

// Fetcher implements the availability fetch contract: one POST per postal
// code, with a rotated client identity and a randomized timeout per request.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger

	// pickTimeout and pickAgent are swappable for deterministic tests.
	pickTimeout func() time.Duration
	pickAgent   func() string
}

type requestBody struct {
	Address struct {
		PostalCode string `json:"postalCode"`
	} `json:"address"`
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if cfg.TimeoutMin <= 0 {
		cfg.TimeoutMin = 10 * time.Second
	}
	if cfg.TimeoutMax < cfg.TimeoutMin {
		cfg.TimeoutMax = cfg.TimeoutMin
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(newHTTPTransport())

	f := &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
	f.pickTimeout = func() time.Duration {
		return jitter.Between(cfg.TimeoutMin, cfg.TimeoutMax)
	}
	f.pickAgent = func() string {
		return cfg.UserAgents[jitter.Index(len(cfg.UserAgents))]
	}
	return f
}

// Fetch posts {"address":{"postalCode":...}} and returns the raw body.
// 4xx responses come back as *availability.TerminalError; network failures,
// timeouts, and 5xx responses as *availability.TransientError.
func (f *Fetcher) Fetch(ctx context.Context, postalCode string) ([]byte, error) {
	postalCode = availability.NormalizePostalCode(postalCode)

	var body requestBody
	body.Address.PostalCode = postalCode
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	var (
		respBody   []byte
		statusCode int
		fetchErr   error
	)
	collector := f.buildCollector(postalCode, &respBody, &statusCode, &fetchErr)

	runErr := f.runCollector(ctx, collector, payload)
	// OnError sees request failures first and carries the status code, so it
	// wins over the PostRaw return value.
	if fetchErr != nil {
		return nil, f.classify(postalCode, statusCode, fetchErr)
	}
	if runErr != nil {
		return nil, &availability.TransientError{PostalCode: postalCode, Err: runErr}
	}
	return respBody, nil
}

func (f *Fetcher) buildCollector(
	postalCode string,
	respBody *[]byte,
	statusCode *int,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.SetRequestTimeout(f.pickTimeout())

	agent := f.pickAgent()
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json, text/plain, */*")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Content-Type", "application/json")
		r.Headers.Set("User-Agent", agent)
	})
	collector.OnResponse(func(r *colly.Response) {
		*statusCode = r.StatusCode
		*respBody = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			*statusCode = r.StatusCode
		}
		*fetchErr = err
	})

	f.logger.Debug("prepared request",
		zap.String("postal_code", postalCode),
		zap.String("user_agent", agent),
	)
	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, payload []byte) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.PostRaw(f.cfg.Endpoint, payload)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("post modality options: %w", err)
		}
		return nil
	}
}

func (f *Fetcher) classify(postalCode string, statusCode int, err error) error {
	if statusCode >= 400 && statusCode < 500 {
		return &availability.TerminalError{PostalCode: postalCode, StatusCode: statusCode}
	}
	return &availability.TransientError{PostalCode: postalCode, StatusCode: statusCode, Err: err}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
