package jsonstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/coverage/coveragetest"
)

// Columns deliberately out of canonical order for axis_value and bucket_hit
const sample = `{
  "tables": {
    "point": ["start", "depth", "end", "axis_start", "axis_end", "axis_value_start", "axis_value_end",
              "goal_start", "goal_end", "bucket_start", "bucket_end", "target", "target_buckets",
              "name", "description"],
    "axis": ["start", "value_start", "value_end", "name", "description"],
    "axis_value": ["value", "start"],
    "goal": ["start", "target", "name", "description"],
    "bucket_goal": ["start", "goal"],
    "point_hit": ["start", "depth", "hits", "hit_buckets", "full_buckets"],
    "bucket_hit": ["hits", "start"]
  },
  "definitions": [{
    "sha": "d0",
    "point": [
      [0, 0, 2, 0, 1, 0, 2, 0, 1, 0, 2, 2, 2, "group", "A group"],
      [0, 1, 1, 0, 1, 0, 2, 0, 1, 0, 2, 2, 2, "point", "A point"]
    ],
    "axis": [[0, 0, 2, "flag", "A flag"]],
    "axis_value": [["off", 0], ["on", 1]],
    "goal": [[0, 1, "DEFAULT", "Default"]],
    "bucket_goal": [[0, 0], [1, 0]]
  }],
  "records": [{
    "def": 0,
    "sha": "r0",
    "point_hit": [[0, 0, 1, 1, 1], [0, 1, 1, 1, 1]],
    "bucket_hit": [[1, 0], [0, 1]]
  }]
}`

func TestLoadHonoursColumnOrder(t *testing.T) {
	reader, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 1, reader.Len())

	r, err := reader.Read(0)
	require.NoError(t, err)
	require.Equal(t, "d0", r.DefSHA())
	require.Equal(t, "r0", r.RecSHA())

	require.Equal(t, []coverage.AxisValue{{Start: 0, Value: "off"}, {Start: 1, Value: "on"}},
		coverage.Collect(r.AxisValues(0, coverage.All)))
	require.Equal(t, []coverage.BucketHit{{Start: 0, Hits: 1}, {Start: 1, Hits: 0}},
		coverage.Collect(r.BucketHits(0, coverage.All)))

	points := coverage.Collect(r.Points(0, 1, 1))
	require.Len(t, points, 1)
	require.Equal(t, "point", points[0].Name)
	require.Equal(t, 2, points[0].Target)
}

func TestReadOutOfRange(t *testing.T) {
	reader, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = reader.Read(1)
	require.ErrorIs(t, err, coverage.ErrRecordRange)
	_, err = reader.Read(-1)
	require.ErrorIs(t, err, coverage.ErrRecordRange)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		want    error
	}{
		{"missing header", [2]string{`"goal": ["start"`, `"nogoal": ["start"`}, ErrMissingTable},
		{"missing column", [2]string{`"bucket_goal": ["start", "goal"]`, `"bucket_goal": ["start", "gaol"]`}, ErrMissingColumn},
		{"missing section table", [2]string{`"bucket_goal": [[0, 0], [1, 0]]`, `"other": []`}, ErrMissingTable},
		{"short row", [2]string{`"bucket_hit": [[1, 0], [0, 1]]`, `"bucket_hit": [[1, 0], [0]]`}, ErrRowWidth},
		{"bad def", [2]string{`"def": 0`, `"def": 3`}, ErrDefinitionRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(sample, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, sample, doc)
			_, err := Load(strings.NewReader(doc))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	doc := strings.Replace(sample, `"def": 0`, `"def": 0, "generator": "nightly", "meta": {"host": "ci-3"}`, 1)
	doc = strings.Replace(doc, `"tables": {`, `"comment": "exported", "tables": {`, 1)
	require.NotEqual(t, sample, doc)

	reader, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	r, err := reader.Read(0)
	require.NoError(t, err)
	require.NotEmpty(t, coverage.Collect(r.BucketHits(0, coverage.All)))
	require.NotContains(t, reader.Document().Records[0].Tables, "generator")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`{"tables": `))
	require.Error(t, err)
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "coverage.json")

	w, err := NewWriter(path)
	require.NoError(t, err)

	id, err := w.Write(coveragetest.Pets())
	require.NoError(t, err)
	require.Equal(t, 0, id)

	id, err = w.Write(coveragetest.Flat("flat", []string{"a", "b"}, []int{0, 1}))
	require.NoError(t, err)
	require.Equal(t, 1, id)

	reader, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, reader.Len())

	r, err := reader.Read(0)
	require.NoError(t, err)
	require.Equal(t, coveragetest.Pets(), coverage.Snapshot(r))

	var shas []string
	for _, r := range reader.ReadAll() {
		shas = append(shas, r.DefSHA())
	}
	require.Equal(t, []string{"def-pets", "flat"}, shas)

	// Reopening keeps what is there
	w, err = NewWriter(path)
	require.NoError(t, err)
	id, err = w.Write(coveragetest.Pets())
	require.NoError(t, err)
	require.Equal(t, 2, id)
}

func TestWriterRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tables": {}}`), 0644))

	_, err := NewWriter(path)
	require.ErrorIs(t, err, ErrMissingTable)
}

func TestWriterWriteAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "doc.json")
	w, err := NewWriter(path)
	require.NoError(t, err)

	ids, err := w.WriteAll([]coverage.Reading{coveragetest.Pets(), coveragetest.Pets()})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, ids)

	reader, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, reader.Len())
	require.Len(t, reader.Document().Definitions, 2)
	r, err := reader.Read(1)
	require.NoError(t, err)
	require.Equal(t, "rec-pets", r.RecSHA())
}
