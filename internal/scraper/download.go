package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/smfetch/internal/event"
	"github.com/pfrederiksen/smfetch/internal/logger"
	"github.com/pfrederiksen/smfetch/internal/storage"
)

// DownloadedFile is a station file written to the output directory.
type DownloadedFile struct {
	Path    string `json:"path"`
	Station string `json:"station"`
	URL     string `json:"url"`
	Size    int    `json:"size"`
}

// Download fetches every link in order and writes its body verbatim to store,
// naming files after eventTime and the station. The first failed fetch or
// write aborts the batch; files written before it stay on disk.
func (s *Scraper) Download(ctx context.Context, links []event.StationLink, eventTime time.Time, store *storage.Storage) ([]DownloadedFile, error) {
	files := make([]DownloadedFile, 0, len(links))
	for _, link := range links {
		s.log.Info("downloading data file", logger.Fields{
			"file":    filepath.Base(store.Path(eventTime, link.Station)),
			"station": link.Station,
		})

		data, err := s.get(ctx, StageDownload, link.URL)
		if err != nil {
			return files, fmt.Errorf("station %s: %w", link.Station, err)
		}

		path, err := store.WriteStationFile(eventTime, link.Station, data)
		if err != nil {
			return files, fmt.Errorf("station %s: %w", link.Station, err)
		}

		s.metrics.FilesDownloaded.Inc()
		s.metrics.BytesDownloaded.Add(float64(len(data)))
		files = append(files, DownloadedFile{
			Path:    path,
			Station: link.Station,
			URL:     link.URL,
			Size:    len(data),
		})
	}
	return files, nil
}
