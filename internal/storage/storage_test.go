package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var eventTime = time.Date(2011, 5, 1, 12, 0, 0, 0, time.UTC)

func TestFileName(t *testing.T) {
	tests := []struct {
		name      string
		eventTime time.Time
		station   string
		want      string
	}{
		{
			name:      "plain station id",
			eventTime: eventTime,
			station:   "2401",
			want:      "20110501120000_2401.txt",
		},
		{
			name:      "padded station id",
			eventTime: eventTime,
			station:   "  ERZ  ",
			want:      "20110501120000_ERZ.txt",
		},
		{
			name:      "path separators replaced",
			eventTime: eventTime,
			station:   "ist/01",
			want:      "20110501120000_ist_01.txt",
		},
		{
			name:      "backslash replaced",
			eventTime: eventTime,
			station:   `ist\01/a`,
			want:      "20110501120000_ist_01_a.txt",
		},
		{
			name:      "non-UTC time converted",
			eventTime: time.Date(2011, 5, 1, 15, 0, 0, 0, time.FixedZone("TRT", 3*3600)),
			station:   "2401",
			want:      "20110501120000_2401.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileName(tt.eventTime, tt.station); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	info, err := os.Stat(s.Dir())
	if err != nil {
		t.Fatalf("output directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", s.Dir())
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/strongmotion")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if want := filepath.Join(home, "strongmotion"); s.Dir() != want {
		t.Errorf("Dir() = %q, want %q", s.Dir(), want)
	}
}

func TestWriteStationFile(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	path, err := s.WriteStationFile(eventTime, "2401", []byte("STATION ID : 2401\n"))
	if err != nil {
		t.Fatalf("WriteStationFile() error: %v", err)
	}

	if !strings.HasSuffix(path, "20110501120000_2401.txt") {
		t.Errorf("path = %q, want suffix 20110501120000_2401.txt", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != "STATION ID : 2401\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestWriteStationFile_Overwrites(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	first, err := s.WriteStationFile(eventTime, "2401", []byte("first version, longer"))
	if err != nil {
		t.Fatalf("WriteStationFile() error: %v", err)
	}
	second, err := s.WriteStationFile(eventTime, "2401", []byte("second"))
	if err != nil {
		t.Fatalf("WriteStationFile() error: %v", err)
	}

	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}

	data, _ := os.ReadFile(second)
	if string(data) != "second" {
		t.Errorf("file content = %q, want %q", data, "second")
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
