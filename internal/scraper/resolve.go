package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pfrederiksen/smfetch/internal/event"
	"github.com/pfrederiksen/smfetch/internal/logger"
)

// ErrNoDataLink means a station page has no link other than stylesheets.
var ErrNoDataLink = errors.New("no data link on station page")

// stationColumns maps logical roles to cell positions in an event detail row.
type stationColumns struct {
	Page int // anchor to the station page
	Name int // anchor whose text is the station id
}

var detailLayout = stationColumns{Page: 1, Name: 6}

func (c stationColumns) width() int {
	return max(c.Page, c.Name) + 1
}

type stationRow struct {
	page    string
	station string
}

// Resolve reads the station table of an event detail page and follows each
// station page to its raw data link. Links keep the row order of the table,
// and each data link stays paired with the station name of its own row.
func (s *Scraper) Resolve(ctx context.Context, detailURL string) ([]event.StationLink, error) {
	base, err := url.Parse(detailURL)
	if err != nil {
		return nil, fmt.Errorf("parsing detail URL: %w", err)
	}

	body, err := s.get(ctx, StageDetail, base.String())
	if err != nil {
		return nil, err
	}

	rows, err := parseStationRows(ExtractTable(body, s.marker))
	if err != nil {
		return nil, fmt.Errorf("parsing station table: %w", err)
	}

	links := make([]event.StationLink, 0, len(rows))
	for _, row := range rows {
		pageURL, err := resolve(base, row.page)
		if err != nil {
			return nil, err
		}

		page, err := s.get(ctx, StageStation, pageURL.String())
		if err != nil {
			return nil, err
		}

		href, err := dataLink(page)
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", row.station, err)
		}
		dataURL, err := resolve(pageURL, href)
		if err != nil {
			return nil, err
		}

		s.log.Debug("resolved station data link", logger.Fields{
			"station": row.station,
			"url":     dataURL.String(),
		})
		s.metrics.StationsResolved.Inc()
		links = append(links, event.StationLink{URL: dataURL.String(), Station: row.station})
	}
	return links, nil
}

func parseStationRows(table string) ([]stationRow, error) {
	rows, err := tableRows(table)
	if err != nil {
		return nil, err
	}

	out := make([]stationRow, 0, len(rows))
	for i, cells := range rows {
		if len(cells) < detailLayout.width() {
			return nil, fmt.Errorf("row %d: %w: %d cells, want at least %d",
				i+1, ErrTableSchema, len(cells), detailLayout.width())
		}
		href, ok := cells[detailLayout.Page].Find("a").First().Attr("href")
		if !ok {
			return nil, fmt.Errorf("row %d: %w: station column has no link", i+1, ErrBadCell)
		}
		station := stationName(cells[detailLayout.Name])
		if station == "" {
			return nil, fmt.Errorf("row %d: %w: empty station name", i+1, ErrBadCell)
		}
		out = append(out, stationRow{page: href, station: station})
	}
	return out, nil
}

// stationName prefers the anchor text of the cell and falls back to the cell
// text when the name is not linked.
func stationName(cell *goquery.Selection) string {
	if a := cell.Find("a").First(); a.Length() > 0 {
		if name := strings.TrimSpace(a.Text()); name != "" {
			return name
		}
	}
	return cellText(cell)
}

// dataLink returns the first non-empty href, in document order, whose target
// does not contain "css". Stylesheet links precede the data link on station
// pages.
func dataLink(page []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("tokenizing station page: %w", err)
			}
			return "", ErrNoDataLink
		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) != "href" {
					continue
				}
				href := strings.TrimSpace(string(val))
				if href == "" || strings.Contains(href, "css") {
					continue
				}
				return href, nil
			}
		}
	}
}
