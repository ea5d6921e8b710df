package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileTimeLayout formats the event time part of a station file name.
const FileTimeLayout = "20060102150405"

// Storage handles persistence of station files
type Storage struct {
	dir string
}

// New creates a new Storage instance rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	if dir == "" {
		dir = "."
	}

	// Expand ~ to home directory
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Storage{
		dir: dir,
	}, nil
}

// Dir returns the resolved output directory.
func (s *Storage) Dir() string {
	return s.dir
}

// FileName returns the station file name for an event time and station id.
// Path separators and surrounding spaces in the station id are not kept.
func FileName(eventTime time.Time, station string) string {
	station = strings.TrimSpace(station)
	station = strings.NewReplacer("/", "_", `\`, "_").Replace(station)
	return fmt.Sprintf("%s_%s.txt", eventTime.UTC().Format(FileTimeLayout), station)
}

// Path returns where the station file for eventTime and station is stored.
func (s *Storage) Path(eventTime time.Time, station string) string {
	return filepath.Join(s.dir, FileName(eventTime, station))
}

// WriteStationFile writes data verbatim, replacing any existing file with the
// same name, and returns the written path.
func (s *Storage) WriteStationFile(eventTime time.Time, station string, data []byte) (string, error) {
	path := s.Path(eventTime, station)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing station file: %w", err)
	}

	return path, nil
}
