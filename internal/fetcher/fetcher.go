package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/smfetch/internal/config"
	"github.com/pfrederiksen/smfetch/internal/event"
	"github.com/pfrederiksen/smfetch/internal/geo"
	"github.com/pfrederiksen/smfetch/internal/logger"
	"github.com/pfrederiksen/smfetch/internal/observability"
	"github.com/pfrederiksen/smfetch/internal/scraper"
	"github.com/pfrederiksen/smfetch/internal/storage"
)

// Pipeline stages reported by Error.
const (
	StageSearch   = "search"
	StageResolve  = "resolve"
	StageDownload = "download"
)

// Error is an unrecoverable fetch failure.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("strong-motion fetch failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the outcome of one pipeline run. Event is nil when nothing matched.
type Result struct {
	RunID string                   `json:"run_id"`
	Event *event.Matched           `json:"event,omitempty"`
	Files []scraper.DownloadedFile `json:"files"`
}

// Paths returns the local paths of the downloaded files in download order.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// Fetcher wires the portal scraper to local storage.
type Fetcher struct {
	scraper *scraper.Scraper
	region  geo.Box
	log     *logger.Logger
	metrics *observability.Metrics
	newID   func() string
}

// New creates a Fetcher from cfg. A nil log uses the default logger and nil
// metrics get a fresh private set.
func New(cfg *config.Config, log *logger.Logger, metrics *observability.Metrics) (*Fetcher, error) {
	if log == nil {
		log = logger.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	s, err := scraper.New(cfg, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("creating scraper: %w", err)
	}

	return &Fetcher{
		scraper: s,
		region:  cfg.Region,
		log:     log,
		metrics: metrics,
		newID:   uuid.NewString,
	}, nil
}

// Metrics returns the metrics recorded by this fetcher.
func (f *Fetcher) Metrics() *observability.Metrics {
	return f.metrics
}

// Run searches for the event described by c and downloads the records of
// every station that recorded it into outDir.
func (f *Fetcher) Run(ctx context.Context, c event.Criteria, outDir string) (*Result, error) {
	res := &Result{RunID: f.newID(), Files: []scraper.DownloadedFile{}}
	log := f.log.With(logger.Fields{"run_id": res.RunID})
	s := f.scraper.WithLogger(log)

	if f.region.Valid() && !f.region.Contains(c.Latitude, c.Longitude) {
		log.Warn("target outside network coverage", logger.Fields{
			"latitude":  c.Latitude,
			"longitude": c.Longitude,
		})
	}

	matched, err := s.Search(ctx, c)
	if err != nil {
		return nil, &Error{Stage: StageSearch, Err: err}
	}
	if matched == nil {
		return res, nil
	}
	res.Event = matched

	links, err := s.Resolve(ctx, matched.DetailURL)
	if err != nil {
		return nil, &Error{Stage: StageResolve, Err: err}
	}
	if len(links) == 0 {
		log.Info("no station records for event", logger.Fields{"event_id": matched.ID})
		return res, nil
	}

	store, err := storage.New(outDir)
	if err != nil {
		return nil, &Error{Stage: StageDownload, Err: err}
	}

	files, err := s.Download(ctx, links, c.Time, store)
	if err != nil {
		return nil, &Error{Stage: StageDownload, Err: err}
	}
	res.Files = files

	log.Info("fetch complete", logger.Fields{
		"event_id": matched.ID,
		"files":    len(files),
		"dir":      store.Dir(),
	})
	return res, nil
}

// Fetch retrieves the station files of the first portal event inside the
// tolerance windows around the given origin and returns their paths. An empty
// slice means no data.
func (f *Fetcher) Fetch(ctx context.Context, lat, lon float64, eventTime time.Time, radiusKm float64, window time.Duration, outDir string) ([]string, error) {
	res, err := f.Run(ctx, event.Criteria{
		Latitude:  lat,
		Longitude: lon,
		Time:      eventTime,
		RadiusKm:  radiusKm,
		Window:    window,
	}, outDir)
	if err != nil {
		return nil, err
	}
	return res.Paths(), nil
}
