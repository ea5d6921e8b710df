package station

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct{ ns, ew, ud float64 }

func stationFile(header map[string]string, rows []sample) string {
	var b strings.Builder
	b.WriteString("ERZINCAN STRONG MOTION RECORD\n")
	for _, label := range []string{
		LabelStationID, LabelStationCoord, LabelStationAlt,
		LabelRecordTime, LabelNumberOfData, LabelSamplingInterval,
	} {
		if v, ok := header[label]; ok {
			fmt.Fprintf(&b, "%s : %s\n", label, v)
		}
	}
	b.WriteString("N-S          E-W          U-D\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "  %v  %v  %v\n", r.ns, r.ew, r.ud)
	}
	return b.String()
}

func fullHeader(npts int) map[string]string {
	return map[string]string{
		LabelStationID:        "2401",
		LabelStationCoord:     "39.7463N-39.5184E",
		LabelStationAlt:       "1185",
		LabelRecordTime:       "01/05/2011 12:00:30.250000 (GMT)",
		LabelNumberOfData:     fmt.Sprint(npts),
		LabelSamplingInterval: "0.01",
	}
}

func TestParse_RoundTrip(t *testing.T) {
	rows := []sample{
		{1.5, -2.25, 0.75},
		{-10, 20, 30},
		{0.125, 0, -0.5},
		{100, -100, 12.5},
	}

	rec, err := Parse(strings.NewReader(stationFile(fullHeader(len(rows)), rows)))
	require.NoError(t, err)

	assert.Equal(t, "2401", rec.Station)
	assert.InDelta(t, 39.7463, rec.Latitude, 1e-9)
	assert.InDelta(t, 39.5184, rec.Longitude, 1e-9)
	assert.InDelta(t, 1185.0, rec.Elevation, 1e-9)
	assert.Equal(t, len(rows), rec.NPTS)
	assert.InDelta(t, 100.0, rec.SamplingRate(), 1e-9)

	want := time.Date(2011, 5, 1, 12, 0, 30, 0, time.UTC).Add(250000 * time.Microsecond)
	assert.True(t, rec.StartTime.Equal(want), "start = %v, want %v", rec.StartTime, want)

	for i, r := range rows {
		assert.InDelta(t, r.ns*0.01, rec.NS.Data[i], 1e-12)
		assert.InDelta(t, r.ew*0.01, rec.EW.Data[i], 1e-12)
		assert.InDelta(t, r.ud*0.01, rec.UD.Data[i], 1e-12)
	}
}

func TestParse_SharedStats(t *testing.T) {
	rows := []sample{{1, 2, 3}}
	rec, err := Parse(strings.NewReader(stationFile(fullHeader(1), rows)))
	require.NoError(t, err)

	channels := []Channel{ChannelNS, ChannelEW, ChannelUD}
	for i, tr := range rec.Traces() {
		assert.Equal(t, channels[i], tr.Stats.Channel)
		assert.Equal(t, "TR", tr.Stats.Network)
		assert.Equal(t, "acc", tr.Stats.Units)
		assert.Equal(t, "2401", tr.Stats.Station)
		assert.Equal(t, 1, tr.Stats.NPTS)
		assert.InDelta(t, 0.01, tr.Stats.Delta, 1e-12)
		assert.InDelta(t, 100.0, tr.Stats.SamplingRate, 1e-9)
		assert.Len(t, tr.Data, 1)
	}
}

func TestParse_FractionIsMicroseconds(t *testing.T) {
	h := fullHeader(1)
	h[LabelRecordTime] = "01/05/2011 12:00:30.5 (GMT)"

	rec, err := Parse(strings.NewReader(stationFile(h, []sample{{0, 0, 0}})))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Microsecond, rec.StartTime.Sub(time.Date(2011, 5, 1, 12, 0, 30, 0, time.UTC)))
}

func TestParse_NoFraction(t *testing.T) {
	h := fullHeader(1)
	h[LabelRecordTime] = "01/05/2011 12:00:30 (GMT)"

	rec, err := Parse(strings.NewReader(stationFile(h, []sample{{0, 0, 0}})))
	require.NoError(t, err)
	assert.True(t, rec.StartTime.Equal(time.Date(2011, 5, 1, 12, 0, 30, 0, time.UTC)))
}

func TestParse_AltitudeDefaults(t *testing.T) {
	tests := []struct {
		name string
		alt  *string
	}{
		{"missing", nil},
		{"non-numeric", strPtr("unknown")},
		{"empty", strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := fullHeader(1)
			delete(h, LabelStationAlt)
			if tt.alt != nil {
				h[LabelStationAlt] = *tt.alt
			}

			rec, err := Parse(strings.NewReader(stationFile(h, []sample{{1, 1, 1}})))
			require.NoError(t, err)
			assert.Equal(t, 0.0, rec.Elevation)
		})
	}
}

func TestParse_HemisphereSignNotApplied(t *testing.T) {
	h := fullHeader(1)
	h[LabelStationCoord] = "12.5S-70.25W"

	rec, err := Parse(strings.NewReader(stationFile(h, []sample{{1, 1, 1}})))
	require.NoError(t, err)

	assert.InDelta(t, 12.5, rec.Latitude, 1e-12)
	assert.InDelta(t, 70.25, rec.Longitude, 1e-12)
}

func TestParse_MissingMandatoryField(t *testing.T) {
	for _, label := range []string{
		LabelStationID, LabelStationCoord, LabelRecordTime, LabelNumberOfData, LabelSamplingInterval,
	} {
		t.Run(label, func(t *testing.T) {
			h := fullHeader(1)
			delete(h, label)

			_, err := Parse(strings.NewReader(stationFile(h, []sample{{1, 1, 1}})))
			require.Error(t, err)

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, label, fe.Field)
			assert.True(t, errors.Is(err, ErrMissingField))
		})
	}
}

func TestParse_BadValues(t *testing.T) {
	tests := []struct {
		name  string
		label string
		value string
	}{
		{"coordinates without separator", LabelStationCoord, "39.7N"},
		{"coordinates not numeric", LabelStationCoord, "abcN-defE"},
		{"record time too short", LabelRecordTime, "01/05/2011"},
		{"record time bad fraction", LabelRecordTime, "01/05/2011 12:00:30.xx (GMT)"},
		{"sample count not numeric", LabelNumberOfData, "many"},
		{"zero interval", LabelSamplingInterval, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := fullHeader(1)
			h[tt.label] = tt.value

			_, err := Parse(strings.NewReader(stationFile(h, []sample{{1, 1, 1}})))
			require.Error(t, err)

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.label, fe.Field)
			assert.True(t, errors.Is(err, ErrBadValue))
			assert.Greater(t, fe.Line, 0)
		})
	}
}

func TestParse_SampleCountMismatch(t *testing.T) {
	_, err := Parse(strings.NewReader(stationFile(fullHeader(3), []sample{{1, 1, 1}})))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSampleCount))
	assert.Contains(t, err.Error(), LabelNumberOfData)
}

func TestParse_ShortDataLine(t *testing.T) {
	content := stationFile(fullHeader(2), []sample{{1, 1, 1}}) + "  1.0  2.0\n"

	_, err := Parse(strings.NewReader(content))
	require.Error(t, err)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "DATA", fe.Field)
	assert.True(t, errors.Is(err, ErrBadValue))
}

func TestParse_BlankDataLinesSkipped(t *testing.T) {
	content := stationFile(fullHeader(2), []sample{{1, 1, 1}}) + "\n  2 2 2\n\n"

	rec, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	assert.Len(t, rec.UD.Data, 2)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20110501120000_2401.txt")
	require.NoError(t, os.WriteFile(path, []byte(stationFile(fullHeader(2), []sample{{1, 2, 3}, {4, 5, 6}})), 0644))

	rec, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.NPTS)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestTrace_PeakAndEndTime(t *testing.T) {
	start := time.Date(2011, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := &Trace{
		Stats: Stats{StartTime: start, Delta: 0.01},
		Data:  []float64{0.1, -0.4, 0.3},
	}

	assert.InDelta(t, 0.4, tr.Peak(), 1e-12)
	assert.True(t, tr.EndTime().Equal(start.Add(20*time.Millisecond)))

	empty := &Trace{Stats: Stats{StartTime: start}}
	assert.Equal(t, 0.0, empty.Peak())
	assert.True(t, empty.EndTime().Equal(start))
}

func TestFormatError_Message(t *testing.T) {
	err := &FormatError{Field: LabelStationID, Err: ErrMissingField}
	assert.Equal(t, "station file: STATION ID: missing header field", err.Error())

	err = &FormatError{Field: "DATA", Line: 12, Err: ErrBadValue}
	assert.Equal(t, "station file: DATA (line 12): malformed value", err.Error())
}

func strPtr(s string) *string { return &s }
