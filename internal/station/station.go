package station

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Header labels recognised at the start of a line.
const (
	LabelStationID        = "STATION ID"
	LabelStationCoord     = "STATION COORD"
	LabelStationAlt       = "STATION ALT"
	LabelRecordTime       = "RECORD TIME"
	LabelNumberOfData     = "NUMBER OF DATA"
	LabelSamplingInterval = "SAMPLING INTERVAL"

	dataMarker = "N-S"
	dataField  = "DATA"
)

const (
	Network = "TR"
	Units   = "acc"

	// cm/s² to m/s²
	scale = 0.01

	recordTimeLayout = "02/01/2006 15:04:05"
	gmtMarker        = "(GMT)"
)

// Channel identifies one acceleration component.
type Channel string

const (
	ChannelNS Channel = "NS"
	ChannelEW Channel = "EW"
	ChannelUD Channel = "UD"
)

// Stats holds the metadata shared by the three traces of a station file plus
// the channel tag of one trace.
type Stats struct {
	Network      string    `json:"network"`
	Station      string    `json:"station"`
	Channel      Channel   `json:"channel"`
	Units        string    `json:"units"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Elevation    float64   `json:"elevation"`
	StartTime    time.Time `json:"starttime"`
	NPTS         int       `json:"npts"`
	Delta        float64   `json:"delta"`
	SamplingRate float64   `json:"sampling_rate"`
}

// Trace is one acceleration component in m/s².
type Trace struct {
	Stats Stats     `json:"stats"`
	Data  []float64 `json:"data"`
}

// Peak returns the largest absolute sample value.
func (t *Trace) Peak() float64 {
	var peak float64
	for _, v := range t.Data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// EndTime returns the time of the last sample.
func (t *Trace) EndTime() time.Time {
	if len(t.Data) == 0 {
		return t.Stats.StartTime
	}
	offset := time.Duration(float64(len(t.Data)-1) * t.Stats.Delta * float64(time.Second))
	return t.Stats.StartTime.Add(offset)
}

// Record is a parsed station file.
type Record struct {
	Station   string    `json:"station"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Elevation float64   `json:"elevation"`
	StartTime time.Time `json:"starttime"`
	NPTS      int       `json:"npts"`
	Delta     float64   `json:"delta"`

	NS *Trace `json:"ns"`
	EW *Trace `json:"ew"`
	UD *Trace `json:"ud"`
}

// SamplingRate is the inverse of the sampling interval.
func (r *Record) SamplingRate() float64 {
	return 1.0 / r.Delta
}

// Traces returns the components in NS, EW, UD order.
func (r *Record) Traces() []*Trace {
	return []*Trace{r.NS, r.EW, r.UD}
}

type header struct {
	station   string
	lat, lon  float64
	elevation float64
	start     time.Time
	npts      int
	delta     float64

	seen map[string]bool
}

// ParseFile opens and parses a station file.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening station file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a station file. Hemisphere letters on coordinates are dropped
// without changing the sign, so southern and western stations come back
// positive.
func Parse(r io.Reader) (*Record, error) {
	h := header{seen: make(map[string]bool)}
	var ns, ew, ud []float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	dataOn := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if dataOn {
			if line == "" {
				continue
			}
			parts := strings.Fields(line)
			if len(parts) < 3 {
				return nil, &FormatError{Field: dataField, Line: lineNo,
					Err: fmt.Errorf("%w: want 3 columns, got %d", ErrBadValue, len(parts))}
			}
			var vals [3]float64
			for i := range vals {
				v, err := strconv.ParseFloat(parts[i], 64)
				if err != nil {
					return nil, &FormatError{Field: dataField, Line: lineNo,
						Err: fmt.Errorf("%w: %q", ErrBadValue, parts[i])}
				}
				vals[i] = v
			}
			ns = append(ns, vals[0])
			ew = append(ew, vals[1])
			ud = append(ud, vals[2])
			continue
		}

		if strings.HasPrefix(line, dataMarker) {
			dataOn = true
			continue
		}
		if err := h.parseLine(line, lineNo); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading station file: %w", err)
	}

	for _, label := range []string{LabelStationID, LabelStationCoord, LabelRecordTime, LabelNumberOfData, LabelSamplingInterval} {
		if !h.seen[label] {
			return nil, &FormatError{Field: label, Err: ErrMissingField}
		}
	}
	if len(ns) != h.npts {
		return nil, &FormatError{Field: LabelNumberOfData,
			Err: fmt.Errorf("%w: header declares %d, data has %d", ErrSampleCount, h.npts, len(ns))}
	}

	return h.record(ns, ew, ud), nil
}

func (h *header) parseLine(line string, lineNo int) error {
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)
	bad := func(label string, err error) error {
		return &FormatError{Field: label, Line: lineNo, Err: fmt.Errorf("%w: %q: %v", ErrBadValue, value, err)}
	}

	switch {
	case strings.HasPrefix(label, LabelStationID):
		h.station = value
		h.seen[LabelStationID] = true

	case strings.HasPrefix(label, LabelStationCoord):
		lat, lon, err := parseCoord(value)
		if err != nil {
			return bad(LabelStationCoord, err)
		}
		h.lat, h.lon = lat, lon
		h.seen[LabelStationCoord] = true

	case strings.HasPrefix(label, LabelStationAlt):
		alt, err := strconv.ParseFloat(firstField(value), 64)
		if err != nil {
			alt = 0.0
		}
		h.elevation = alt

	case strings.HasPrefix(label, LabelRecordTime):
		start, err := parseRecordTime(value)
		if err != nil {
			return bad(LabelRecordTime, err)
		}
		h.start = start
		h.seen[LabelRecordTime] = true

	case strings.HasPrefix(label, LabelNumberOfData):
		n, err := strconv.Atoi(firstField(value))
		if err != nil || n < 0 {
			return bad(LabelNumberOfData, err)
		}
		h.npts = n
		h.seen[LabelNumberOfData] = true

	case strings.HasPrefix(label, LabelSamplingInterval):
		d, err := strconv.ParseFloat(firstField(value), 64)
		if err != nil {
			return bad(LabelSamplingInterval, err)
		}
		if d <= 0 {
			return bad(LabelSamplingInterval, fmt.Errorf("interval must be positive"))
		}
		h.delta = d
		h.seen[LabelSamplingInterval] = true
	}
	return nil
}

func (h *header) record(ns, ew, ud []float64) *Record {
	stats := Stats{
		Network:      Network,
		Station:      h.station,
		Units:        Units,
		Latitude:     h.lat,
		Longitude:    h.lon,
		Elevation:    h.elevation,
		StartTime:    h.start,
		NPTS:         h.npts,
		Delta:        h.delta,
		SamplingRate: 1.0 / h.delta,
	}
	trace := func(ch Channel, data []float64) *Trace {
		s := stats
		s.Channel = ch
		scaled := make([]float64, len(data))
		for i, v := range data {
			scaled[i] = v * scale
		}
		return &Trace{Stats: s, Data: scaled}
	}

	return &Record{
		Station:   h.station,
		Latitude:  h.lat,
		Longitude: h.lon,
		Elevation: h.elevation,
		StartTime: h.start,
		NPTS:      h.npts,
		Delta:     h.delta,
		NS:        trace(ChannelNS, ns),
		EW:        trace(ChannelEW, ew),
		UD:        trace(ChannelUD, ud),
	}
}

// parseCoord reads "<lat><N|S>-<lon><E|W>".
func parseCoord(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, "-")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("want <lat><hemisphere>-<lon><hemisphere>")
	}
	lat, err = strconv.ParseFloat(dropHemisphere(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err = strconv.ParseFloat(dropHemisphere(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func dropHemisphere(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.TrimSpace(s[:len(s)-1])
}

// parseRecordTime reads "DD/MM/YYYY HH:MM:SS.ffffff (GMT)". The digits after
// the seconds separator are taken as a microsecond count.
func parseRecordTime(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.Replace(s, gmtMarker, "", 1))
	if len(s) < len(recordTimeLayout) {
		return time.Time{}, fmt.Errorf("want %s", recordTimeLayout)
	}
	t, err := time.ParseInLocation(recordTimeLayout, s[:len(recordTimeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	frac := ""
	if len(s) > len(recordTimeLayout)+1 {
		frac = strings.TrimSpace(s[len(recordTimeLayout)+1:])
	}
	if frac == "" {
		return t, nil
	}
	us, err := strconv.Atoi(frac)
	if err != nil {
		return time.Time{}, fmt.Errorf("fractional seconds: %w", err)
	}
	if us < 0 || us > 999999 {
		return time.Time{}, fmt.Errorf("fractional seconds %d out of range", us)
	}
	return t.Add(time.Duration(us) * time.Microsecond), nil
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
