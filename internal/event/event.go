package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/smfetch/internal/geo"
)

// Criteria describes the earthquake being looked for and the tolerance windows
// a candidate must fall inside.
type Criteria struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Time      time.Time     `json:"time"`
	RadiusKm  float64       `json:"radius_km"`
	Window    time.Duration `json:"window"`
}

// ErrInvalidCriteria is returned by Validate.
var ErrInvalidCriteria = errors.New("invalid search criteria")

// Validate checks coordinate ranges and that both windows are positive.
func (c Criteria) Validate() error {
	switch {
	case c.Latitude < -90 || c.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCriteria, c.Latitude)
	case c.Longitude < -180 || c.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCriteria, c.Longitude)
	case c.RadiusKm <= 0:
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidCriteria, c.RadiusKm)
	case c.Window <= 0:
		return fmt.Errorf("%w: time window must be positive, got %v", ErrInvalidCriteria, c.Window)
	case c.Time.IsZero():
		return fmt.Errorf("%w: event time is required", ErrInvalidCriteria)
	}
	return nil
}

// Candidate is one row of a search result table.
type Candidate struct {
	ID         string    `json:"id"`
	DetailLink string    `json:"detail_link"` // relative to the search endpoint
	Time       time.Time `json:"time"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Magnitude  float64   `json:"magnitude"`
}

// Matched is the accepted candidate with its detail link resolved.
type Matched struct {
	Candidate
	DetailURL string `json:"detail_url"`
}

// StationLink pairs a raw data download URL with the station it belongs to.
type StationLink struct {
	URL     string `json:"url"`
	Station string `json:"station"`
}

// TimeDiff returns the absolute difference between t and the criteria time.
func (c Criteria) TimeDiff(t time.Time) time.Duration {
	d := t.Sub(c.Time)
	if d < 0 {
		d = -d
	}
	return d
}

// DistanceKm returns the geodesic distance from the criteria point.
func (c Criteria) DistanceKm(lat, lon float64) float64 {
	return geo.DistanceKm(c.Latitude, c.Longitude, lat, lon)
}

// Accepts reports whether the candidate is strictly inside both windows.
func (c Criteria) Accepts(cand *Candidate) bool {
	if cand == nil {
		return false
	}
	return c.TimeDiff(cand.Time) < c.Window && c.DistanceKm(cand.Latitude, cand.Longitude) < c.RadiusKm
}

// Match returns the first candidate, in the given order, accepted by the
// criteria. Later candidates are not examined once one is accepted, even if
// they are closer.
func Match(candidates []*Candidate, c Criteria) (*Candidate, bool) {
	for _, cand := range candidates {
		if c.Accepts(cand) {
			return cand, true
		}
	}
	return nil, false
}
