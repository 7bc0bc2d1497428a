package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const profile = `mode: set
example.com/m/a/x.go:1.1,3.2 2 1
example.com/m/a/x.go:5.1,7.2 1 0
example.com/m/a/y.go:1.1,2.2 1 1
example.com/m/b/z.go:1.1,4.2 3 0
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "%v", args)
	return out.String()
}

// Commands share package-level flag state, so the steps run in one test.
func TestImportShowConvertMerge(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.out")
	require.NoError(t, os.WriteFile(cover, []byte(profile), 0644))
	jsonReport := filepath.Join(dir, "report.json")
	dbReport := filepath.Join(dir, "report.db")
	merged := filepath.Join(dir, "merged.json")

	execute(t, "import-go", cover, "--name", "example.com/m", "--record", "ci", "--output", jsonReport)
	require.FileExists(t, jsonReport)

	out := execute(t, "show", "--report", jsonReport, "--view", "summary")
	require.Contains(t, out, "example.com/m / example.com/m/a / x.go")

	out = execute(t, "show", "0-0-1", "--report", jsonReport, "--view", "point")
	require.Contains(t, out, "1:1-3:2")
	require.Contains(t, out, "DEFAULT")

	execute(t, "convert", jsonReport, dbReport)
	out = execute(t, "show", "--report", dbReport, "--view", "tree")
	require.Contains(t, out, "z.go")

	execute(t, "merge", jsonReport, dbReport, "--output", merged)
	out = execute(t, "show", "--report", merged, "--view", "summary", "--sort", "path")
	require.Contains(t, out, "example.com/m / example.com/m/b / z.go")

	mergedDB := filepath.Join(dir, "merged.db")
	execute(t, "merge", dbReport, dbReport, "--output", mergedDB)
	out = execute(t, "show", "0-3-4", "--report", mergedDB, "--view", "point")
	require.Contains(t, out, "1:1-4:2")

	html := filepath.Join(dir, "out", "index.html")
	execute(t, "render", "--report", merged, "--output", html)
	require.FileExists(t, html)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage-viewer.yaml")

	execute(t, "config", "init", "--config", path, "--report", "results.db", "--verbosity", "debug")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "results.db")
	require.Contains(t, string(data), "debug")

	rootCmd.SetArgs([]string{"config", "init", "--config", path})
	require.Error(t, rootCmd.Execute())

	execute(t, "config", "init", "--config", path, "--force")
}
