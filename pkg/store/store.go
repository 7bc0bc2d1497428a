// Package store picks a coverage backend for a file: JSON documents handled
// by jsonstore or SQLite databases handled by sqlstore.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jupierce/coverage-viewer/pkg/config"
	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/store/jsonstore"
	"github.com/jupierce/coverage-viewer/pkg/store/sqlstore"
)

// ErrUnknownFormat is returned for a format other than json or sqlite
var ErrUnknownFormat = errors.New("unknown report format")

var sqliteExtensions = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// DetectFormat returns format when set and otherwise guesses from the file
// extension, defaulting to JSON
func DetectFormat(path, format string) (string, error) {
	if format != "" {
		if !config.IsValidFormat(format) {
			return "", fmt.Errorf("%q: %w", format, ErrUnknownFormat)
		}
		return format, nil
	}
	if sqliteExtensions[strings.ToLower(filepath.Ext(path))] {
		return config.FormatSQLite, nil
	}
	return config.FormatJSON, nil
}

// Load reads every reading from a report file in record order
func Load(path, format string) ([]coverage.Reading, error) {
	format, err := DetectFormat(path, format)
	if err != nil {
		return nil, err
	}

	if format == config.FormatSQLite {
		return sqlstore.ReadFile(path)
	}

	reader, err := jsonstore.Open(path)
	if err != nil {
		return nil, err
	}
	var readings []coverage.Reading
	for _, r := range reader.ReadAll() {
		readings = append(readings, r)
	}
	return readings, nil
}

// LoadAll reads several report files into one list of readings
func LoadAll(paths []string, format string) ([]coverage.Reading, error) {
	var all []coverage.Reading
	for _, path := range paths {
		readings, err := Load(path, format)
		if err != nil {
			return nil, err
		}
		all = append(all, readings...)
	}
	return all, nil
}

// MergeAll merges the readings of several report files that share a
// definition and record hash. SQLite-only inputs are merged by sqlstore.
func MergeAll(paths []string, format string) ([]*coverage.MergeReading, error) {
	allSQLite := len(paths) > 0
	for _, path := range paths {
		f, err := DetectFormat(path, format)
		if err != nil {
			return nil, err
		}
		allSQLite = allSQLite && f == config.FormatSQLite
	}
	if allSQLite {
		return sqlstore.MergeFiles(paths...)
	}

	readings, err := LoadAll(paths, format)
	if err != nil {
		return nil, err
	}
	return coverage.MergeBySHA(readings)
}

// Save appends readings to a report file, creating it if needed. JSON
// documents are rewritten once for the whole batch.
func Save(path, format string, readings []coverage.Reading) error {
	format, err := DetectFormat(path, format)
	if err != nil {
		return err
	}

	if format == config.FormatSQLite {
		s, err := sqlstore.Open(path)
		if err != nil {
			return err
		}
		defer s.Close()
		for i, r := range readings {
			if _, err := s.Write(r); err != nil {
				return fmt.Errorf("write reading %d: %w", i, err)
			}
		}
		return nil
	}

	w, err := jsonstore.NewWriter(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteAll(readings); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
