package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pfrederiksen/smfetch/internal/event"
	"github.com/pfrederiksen/smfetch/internal/fetcher"
	"github.com/pfrederiksen/smfetch/internal/scraper"
	"github.com/pfrederiksen/smfetch/internal/station"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Target echoes the search criteria of a fetch.
type Target struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`
	RadiusKm  float64   `json:"radius_km"`
	WindowSec float64   `json:"window_s"`
}

// FetchOutput contains data to be output after a fetch
type FetchOutput struct {
	RunID      string                   `json:"run_id"`
	Target     Target                   `json:"target"`
	Event      *event.Matched           `json:"event,omitempty"`
	DistanceKm float64                  `json:"distance_km,omitempty"`
	Files      []scraper.DownloadedFile `json:"files"`
	FileCount  int                      `json:"file_count"`
	TotalBytes int                      `json:"total_bytes"`
}

func newFetchOutput(c event.Criteria, res *fetcher.Result) *FetchOutput {
	out := &FetchOutput{
		RunID: res.RunID,
		Target: Target{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Time:      c.Time,
			RadiusKm:  c.RadiusKm,
			WindowSec: c.Window.Seconds(),
		},
		Event:     res.Event,
		Files:     res.Files,
		FileCount: len(res.Files),
	}
	if res.Event != nil {
		out.DistanceKm = c.DistanceKm(res.Event.Latitude, res.Event.Longitude)
	}
	for _, f := range res.Files {
		out.TotalBytes += f.Size
	}
	return out
}

// ChannelPeak is the peak absolute acceleration of one component.
type ChannelPeak struct {
	Channel station.Channel `json:"channel"`
	Peak    float64         `json:"peak"`
}

// StationSummary describes one parsed station file.
type StationSummary struct {
	File         string        `json:"file"`
	Station      string        `json:"station"`
	Network      string        `json:"network"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	Elevation    float64       `json:"elevation"`
	StartTime    time.Time     `json:"starttime"`
	EndTime      time.Time     `json:"endtime"`
	NPTS         int           `json:"npts"`
	SamplingRate float64       `json:"sampling_rate"`
	Units        string        `json:"units"`
	Peaks        []ChannelPeak `json:"peaks"`
	PGA          float64       `json:"pga"`
}

func newStationSummary(path string, rec *station.Record) *StationSummary {
	s := &StationSummary{
		File:         path,
		Station:      rec.Station,
		Network:      station.Network,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		Elevation:    rec.Elevation,
		StartTime:    rec.StartTime,
		EndTime:      rec.NS.EndTime(),
		NPTS:         rec.NPTS,
		SamplingRate: rec.SamplingRate(),
		Units:        station.Units,
	}
	for _, tr := range rec.Traces() {
		peak := tr.Peak()
		s.Peaks = append(s.Peaks, ChannelPeak{Channel: tr.Stats.Channel, Peak: peak})
		if peak > s.PGA {
			s.PGA = peak
		}
	}
	return s
}

// WriteFetchOutput writes the fetch result in the specified format
func WriteFetchOutput(w io.Writer, out *FetchOutput, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatText:
		return writeFetchText(w, out, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteParseOutput writes station summaries in the specified format
func WriteParseOutput(w io.Writer, summaries []*StationSummary, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summaries)
	case FormatText:
		return writeParseText(w, summaries, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeFetchText(w io.Writer, out *FetchOutput, verbose bool) error {
	if out.Event == nil {
		fmt.Fprintln(w, "No matching event found.")
		return nil
	}

	ev := out.Event
	fmt.Fprintf(w, "Event %s: %s  %.4f, %.4f  M%.1f (%.1f km from target)\n",
		ev.ID, ev.Time.Format(time.RFC3339), ev.Latitude, ev.Longitude, ev.Magnitude, out.DistanceKm)
	if verbose {
		fmt.Fprintf(w, "  Detail: %s\n", ev.DetailURL)
		fmt.Fprintf(w, "  Run:    %s\n", out.RunID)
	}

	if out.FileCount == 0 {
		fmt.Fprintln(w, "No station records found.")
		return nil
	}

	fmt.Fprintln(w)
	for _, f := range out.Files {
		fmt.Fprintf(w, "  %-8s %s (%s)\n", f.Station, f.Path, humanize.Bytes(uint64(f.Size)))
		if verbose {
			fmt.Fprintf(w, "           from %s\n", f.URL)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d files, %s\n", out.FileCount, humanize.Bytes(uint64(out.TotalBytes)))
	return nil
}

func writeParseText(w io.Writer, summaries []*StationSummary, verbose bool) error {
	for _, s := range summaries {
		fmt.Fprintf(w, "%s.%s  %.4f, %.4f  %gm  %s  %s samples @ %g Hz  PGA %.4f m/s²\n",
			s.Network, s.Station, s.Latitude, s.Longitude, s.Elevation,
			s.StartTime.Format("2006-01-02T15:04:05.000000Z"), humanize.Comma(int64(s.NPTS)), s.SamplingRate, s.PGA)
		if verbose {
			fmt.Fprintf(w, "     File: %s\n", s.File)
			fmt.Fprintf(w, "     End:  %s\n", s.EndTime.Format("2006-01-02T15:04:05.000000Z"))
			for _, p := range s.Peaks {
				fmt.Fprintf(w, "     %s:   %.4f m/s²\n", p.Channel, p.Peak)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d stations\n", len(summaries))
	return nil
}
