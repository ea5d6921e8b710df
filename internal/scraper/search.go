package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/smfetch/internal/event"
	"github.com/pfrederiksen/smfetch/internal/geo"
	"github.com/pfrederiksen/smfetch/internal/logger"
	"github.com/pfrederiksen/smfetch/internal/observability"
)

const (
	noRecordsPhrase = "no records found"
	eventTimeLayout = "2006-01-02 15:04:05"
)

var (
	// ErrTableSchema means a result row is narrower than the expected layout.
	ErrTableSchema = errors.New("unexpected table layout")
	// ErrBadCell means a cell could not be read as its column's type.
	ErrBadCell = errors.New("malformed table cell")
)

// resultColumns maps logical roles to cell positions in a search result row.
type resultColumns struct {
	Detail    int // anchor: detail link and event id
	Date      int
	Time      int // HH:MM:SS, possibly followed by fractions
	Latitude  int
	Longitude int
	Magnitude int
}

var searchLayout = resultColumns{Detail: 1, Date: 2, Time: 3, Latitude: 4, Longitude: 5, Magnitude: 7}

func (c resultColumns) width() int {
	return max(c.Detail, c.Date, c.Time, c.Latitude, c.Longitude, c.Magnitude) + 1
}

// SearchForm builds the portal search form: a date range of the criteria time
// plus and minus slack, blank magnitude and depth ranges, and an epicenter box
// of half-width radius/kmPerDegree degrees.
func SearchForm(c event.Criteria, slack time.Duration, kmPerDegree float64) url.Values {
	from := c.Time.UTC().Add(-slack)
	to := c.Time.UTC().Add(slack)
	box := geo.Around(c.Latitude, c.Longitude, c.RadiusKm, kmPerDegree)

	form := url.Values{
		"from_day":     {strconv.Itoa(from.Day())},
		"from_month":   {strconv.Itoa(int(from.Month()))},
		"from_year":    {strconv.Itoa(from.Year())},
		"to_day":       {strconv.Itoa(to.Day())},
		"to_month":     {strconv.Itoa(int(to.Month()))},
		"to_year":      {strconv.Itoa(to.Year())},
		"from_epi_lat": {formatDegrees(box.MinLat)},
		"to_epi_lat":   {formatDegrees(box.MaxLat)},
		"from_epi_lon": {formatDegrees(box.MinLon)},
		"to_epi_lon":   {formatDegrees(box.MaxLon)},
	}
	for _, blank := range []string{"md", "ml", "ms", "mw", "mb", "depth"} {
		form["from_"+blank] = []string{""}
		form["to_"+blank] = []string{""}
	}
	return form
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Search posts the search form and returns the first result row within both
// tolerance windows. It returns nil and no error when the portal has no
// records or when no row qualifies.
func (s *Scraper) Search(ctx context.Context, c event.Criteria) (*event.Matched, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	body, err := s.postForm(ctx, StageSearch, s.searchURL.String(), SearchForm(c, s.dateSlack, s.kmPerDegree))
	if err != nil {
		s.metrics.Searches.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	if strings.Contains(strings.ToLower(string(body)), noRecordsPhrase) {
		s.metrics.Searches.WithLabelValues(observability.OutcomeNoRecords).Inc()
		s.log.Info("no records found in portal database", nil)
		return nil, nil
	}

	cand, scanned, err := matchCandidate(ExtractTable(body, s.marker), c)
	s.metrics.CandidatesScanned.Add(float64(scanned))
	if err != nil {
		s.metrics.Searches.WithLabelValues(observability.OutcomeError).Inc()
		return nil, fmt.Errorf("parsing search results: %w", err)
	}
	if cand == nil {
		s.metrics.Searches.WithLabelValues(observability.OutcomeNoMatch).Inc()
		s.log.Info("no matching event in portal database", logger.Fields{
			"candidates": scanned,
		})
		return nil, nil
	}

	detail, err := resolve(s.searchURL, cand.DetailLink)
	if err != nil {
		s.metrics.Searches.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	s.metrics.Searches.WithLabelValues(observability.OutcomeMatch).Inc()
	s.log.Info("matched event", logger.Fields{
		"event_id":    cand.ID,
		"event_time":  cand.Time.Format(time.RFC3339),
		"distance_km": c.DistanceKm(cand.Latitude, cand.Longitude),
		"time_diff_s": c.TimeDiff(cand.Time).Seconds(),
		"magnitude":   cand.Magnitude,
	})

	return &event.Matched{Candidate: *cand, DetailURL: detail.String()}, nil
}

// matchCandidate reads the sanitized result table in document order and
// returns the first row accepted by c, along with the number of rows read.
// Rows after the accepted one are never read, so they cannot fail the search.
func matchCandidate(table string, c event.Criteria) (*event.Candidate, int, error) {
	rows, err := tableRows(table)
	if err != nil {
		return nil, 0, err
	}

	for i, cells := range rows {
		cand, err := readCandidate(cells, searchLayout)
		if err != nil {
			return nil, i, fmt.Errorf("row %d: %w", i+1, err)
		}
		if c.Accepts(cand) {
			return cand, i + 1, nil
		}
	}
	return nil, len(rows), nil
}

func readCandidate(cells []*goquery.Selection, cols resultColumns) (*event.Candidate, error) {
	if len(cells) < cols.width() {
		return nil, fmt.Errorf("%w: %d cells, want at least %d", ErrTableSchema, len(cells), cols.width())
	}

	anchor := cells[cols.Detail].Find("a").First()
	href, ok := anchor.Attr("href")
	if !ok {
		return nil, fmt.Errorf("%w: detail column has no link", ErrBadCell)
	}

	timeText := cellText(cells[cols.Time])
	if len(timeText) < 8 {
		return nil, fmt.Errorf("%w: time %q", ErrBadCell, timeText)
	}
	when, err := time.ParseInLocation(eventTimeLayout, cellText(cells[cols.Date])+" "+timeText[:8], time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: event time: %v", ErrBadCell, err)
	}

	lat, err := parseFloatCell(cells[cols.Latitude], "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatCell(cells[cols.Longitude], "longitude")
	if err != nil {
		return nil, err
	}

	// Some events carry no magnitude of this type.
	var mag float64
	if cellText(cells[cols.Magnitude]) != "" {
		if mag, err = parseFloatCell(cells[cols.Magnitude], "magnitude"); err != nil {
			return nil, err
		}
	}

	return &event.Candidate{
		ID:         strings.TrimSpace(anchor.Text()),
		DetailLink: href,
		Time:       when,
		Latitude:   lat,
		Longitude:  lon,
		Magnitude:  mag,
	}, nil
}

// tableRows returns the td cells of every row that has any. Header rows made
// only of th cells are skipped.
func tableRows(table string) ([][]*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(table))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	rows := make([][]*goquery.Selection, 0)
	doc.Find("tr").Each(func(i int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() == 0 {
			return
		}
		cells := make([]*goquery.Selection, 0, tds.Length())
		tds.Each(func(j int, td *goquery.Selection) {
			cells = append(cells, td)
		})
		rows = append(rows, cells)
	})
	return rows, nil
}

func cellText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

func parseFloatCell(sel *goquery.Selection, role string) (float64, error) {
	text := cellText(sel)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrBadCell, role, text)
	}
	return v, nil
}
