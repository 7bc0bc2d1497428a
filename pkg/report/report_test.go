package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/coverage/coveragetest"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

func petsTree(t *testing.T) *covtree.CoverageTree {
	t.Helper()
	ct, err := covtree.FromReadings([]coverage.Reading{coveragetest.Pets()})
	require.NoError(t, err)
	return ct
}

func TestSummarize(t *testing.T) {
	s := Summarize(petsTree(t))
	require.Equal(t, 3, s.Points)
	require.Equal(t, 2, s.Leaves)
	require.Equal(t, 15, s.Target)
	require.Equal(t, 7, s.Hits)
	require.Equal(t, 3, s.FullBuckets)
	require.Equal(t, grid.NewRatio(3, 6), s.FullRatio)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHTML(&buf, petsTree(t), Options{
		Title:     "Pets <coverage>",
		Generated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	page := buf.String()
	require.Contains(t, page, "<title>Pets &lt;coverage&gt;</title>")
	require.Contains(t, page, "2026-01-02T03:04:05Z")
	require.Contains(t, page, `href="#node-0-0-1"`)
	require.Contains(t, page, `id="node-0-1-2-buckets"`)
	require.Contains(t, page, "top / dogs")
	require.Contains(t, page, "<td>grumpy</td>")
	require.Contains(t, page, "background-color: "+grid.DefaultPalette.Good)
	require.Contains(t, page, "font-weight: bold")
	require.Contains(t, page, "40.0%")
}

func TestWriteHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, WriteHTMLFile(path, petsTree(t), Options{Palette: grid.Palette{Good: "#00ff00", Bad: "#ff0000"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "<title>Coverage Report</title>")
	require.Contains(t, string(data), "#00ff00")

	require.Error(t, WriteHTMLFile(filepath.Join(t.TempDir(), "missing", "index.html"), petsTree(t), Options{}))
}

func TestFormatInt(t *testing.T) {
	require.Equal(t, "0", formatInt(0))
	require.Equal(t, "999", formatInt(999))
	require.Equal(t, "1,000", formatInt(1000))
	require.Equal(t, "1,234,567", formatInt(1234567))
	require.Equal(t, "-12,345", formatInt(-12345))
}

func TestWriteTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTree(&buf, petsTree(t)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "NODE"))
	require.True(t, strings.HasPrefix(lines[1], "top "))
	require.True(t, strings.HasPrefix(lines[2], "  dogs "))
	require.Contains(t, lines[2], "0-0-1")
	require.Contains(t, lines[3], "40.0%")
}

func TestWriteSummary(t *testing.T) {
	rows, err := grid.SummaryGrid(petsTree(t), tree.Root)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, rows))
	out := buf.String()
	require.Contains(t, out, "PATH")
	require.Contains(t, out, "top / cats")
}

func TestWritePointsAndPivot(t *testing.T) {
	dogs := petsTree(t).NodeByKey("0-0-1")
	pt, err := grid.PointGrid(dogs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePoints(&buf, pt, pt.Rows))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	require.Equal(t, []string{"BUCKET", "size", "colour", "GOAL", "TARGET", "HITS", "HIT", "%"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"5", "large", "blue", "IGNORE", "0", "3", "100.0%"}, strings.Fields(lines[6]))

	pv, err := grid.PivotGrid(dogs, "size", "colour")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WritePivot(&buf, pv))
	lines = strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"size", "\\", "colour", "red", "green", "blue"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"small", "100.0%", "0.0%", "100.0%"}, strings.Fields(lines[1]))
}
