package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 127.0.0.1:9000
  write_timeout: 1m
log:
  level: debug
report:
  path: cov.sqlite
  format: sqlite
bigquery:
  project: proj
  dataset: coverage
palette:
  good: "#00ff00"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, FormatSQLite, cfg.Report.Format)
	require.Equal(t, "cov.sqlite", cfg.Report.Path)
	require.Equal(t, "proj", cfg.BigQuery.Project)
	require.Equal(t, "#00ff00", cfg.Palette.Good)
	require.Equal(t, DefaultConfig().Palette.Bad, cfg.Palette.Bad)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "report:\n  format: csv\n"},
		{"negative timeout", "server:\n  read_timeout: -1s\n"},
		{"bad colour", "palette:\n  bad: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := DefaultConfig()
	cfg.Report.Path = "report.json"
	cfg.Report.Format = FormatJSON
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
