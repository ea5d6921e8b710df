package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/smfetch/internal/config"
	"github.com/pfrederiksen/smfetch/internal/logger"
	"github.com/pfrederiksen/smfetch/internal/observability"
)

// Request stages, used as metric labels and in error messages.
const (
	StageSearch   = "search"
	StageDetail   = "detail"
	StageStation  = "station"
	StageDownload = "download"
)

// Scraper handles fetching and parsing strong-motion portal pages
type Scraper struct {
	client      *http.Client
	searchURL   *url.URL
	userAgent   string
	marker      string
	kmPerDegree float64
	dateSlack   time.Duration

	log     *logger.Logger
	metrics *observability.Metrics
}

// New creates a Scraper from cfg. A nil log discards output and nil metrics
// get a fresh private set. cfg must pass Validate.
func New(cfg *config.Config, log *logger.Logger, metrics *observability.Metrics) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing search endpoint: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		searchURL:   u,
		userAgent:   cfg.UserAgent,
		marker:      cfg.TableMarker,
		kmPerDegree: cfg.KmPerDegree,
		dateSlack:   cfg.DateSlack,
		log:         log,
		metrics:     metrics,
	}, nil
}

// WithLogger returns a shallow copy that logs to log.
func (s *Scraper) WithLogger(log *logger.Logger) *Scraper {
	cp := *s
	cp.log = log
	return &cp
}

// StatusError is returned when the portal answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

func (s *Scraper) get(ctx context.Context, stage, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return s.do(req, stage)
}

func (s *Scraper) postForm(ctx context.Context, stage, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, stage)
}

func (s *Scraper) do(req *http.Request, stage string) ([]byte, error) {
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	defer func() {
		s.metrics.RequestDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.RequestErrors.WithLabelValues(stage).Inc()
		return nil, fmt.Errorf("fetching %s page: %w", stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.metrics.RequestErrors.WithLabelValues(stage).Inc()
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		s.metrics.RequestErrors.WithLabelValues(stage).Inc()
		return nil, fmt.Errorf("reading %s page: %w", stage, err)
	}
	return buf.Bytes(), nil
}

// resolve makes href absolute against base.
func resolve(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("parsing link %q: %w", href, err)
	}
	return base.ResolveReference(ref), nil
}
