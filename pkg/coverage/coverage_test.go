package coverage_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/coverage/coveragetest"
)

func TestDecodeRow(t *testing.T) {
	row := coverage.DecodeRow([]string{"a", "b"}, []any{1, "x"})
	require.Equal(t, coverage.Row{"a": 1, "b": "x"}, row)

	// Short rows leave trailing columns unset
	row = coverage.DecodeRow([]string{"a", "b"}, []any{json.Number("7")})
	require.Equal(t, 7, row.Int("a"))
	require.Equal(t, "", row.String("b"))
}

func TestRowTypedDecode(t *testing.T) {
	cols := coverage.DefaultTables().Columns(coverage.TableAxis)
	row := coverage.DecodeRow(cols, []any{float64(3), json.Number("4"), 6, "colour", "Dog colour"})
	require.Equal(t, coverage.Axis{Start: 3, ValueStart: 4, ValueEnd: 6, Name: "colour", Description: "Dog colour"},
		coverage.AxisFromRow(row))
}

func TestToRowFollowsSchema(t *testing.T) {
	ph := coverage.PointHit{Start: 1, Depth: 2, Hits: 3, HitBuckets: 4, FullBuckets: 5}
	row := coverage.ToRow(coverage.TablePointHit, ph)
	require.Equal(t, ph, coverage.PointHitFromRow(row))

	reordered := []string{"hits", "start"}
	require.Equal(t, []any{3, 1}, row.Values(reordered))
}

func TestSchemaUnknownTablePanics(t *testing.T) {
	require.Panics(t, func() {
		coverage.DefaultTables().Columns("no_such_table")
	})
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		start, end int
		lo, hi     int
	}{
		{"whole table", 5, 0, coverage.All, 0, 5},
		{"inner", 5, 1, 3, 1, 3},
		{"end past table", 5, 3, 10, 3, 5},
		{"start past table", 5, 6, coverage.All, 0, 0},
		{"negative start", 5, -1, 2, 0, 0},
		{"inverted", 5, 4, 2, 4, 4},
		{"empty table", 0, 0, coverage.All, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := coverage.Window(tt.n, tt.start, tt.end)
			require.Equal(t, tt.lo, lo)
			require.Equal(t, tt.hi, hi)
		})
	}
}

func TestMemoryReadingDepthOffset(t *testing.T) {
	r := coveragetest.Pets()

	names := func(points []coverage.Point) []string {
		var out []string
		for _, p := range points {
			out = append(out, p.Name)
		}
		return out
	}

	require.Equal(t, []string{"top", "dogs", "cats"}, names(coverage.Collect(r.Points(0, coverage.All, 0))))
	// A point at depth 1 starting at 0 lives in row 1
	require.Equal(t, []string{"dogs"}, names(coverage.Collect(r.Points(0, 1, 1))))
	require.Empty(t, coverage.Collect(r.Points(10, coverage.All, 0)))
	require.Len(t, coverage.Collect(r.PointHits(0, 2, 1)), 2)
}

func TestIteratorsAreRestartable(t *testing.T) {
	r := coveragetest.Pets()
	seq := r.BucketHits(2, 5)
	first := coverage.Collect(seq)
	second := coverage.Collect(seq)
	require.Equal(t, first, second)
	require.Len(t, first, 3)
	require.Equal(t, 2, first[0].Start)
}

func TestDecodeBucket(t *testing.T) {
	p := coverage.Point{BucketStart: 0, AxisValueStart: 0}
	axes := []coverage.Axis{
		{Name: "A", ValueStart: 0, ValueEnd: 2},
		{Name: "B", ValueStart: 2, ValueEnd: 5},
	}
	values := []coverage.AxisValue{
		{Start: 0, Value: "x"}, {Start: 1, Value: "y"},
		{Start: 2, Value: "p"}, {Start: 3, Value: "q"}, {Start: 4, Value: "r"},
	}

	labels, err := coverage.DecodeBucket(4, p, axes, values)
	require.NoError(t, err)
	require.Equal(t, []string{"y", "q"}, labels)

	labels, err = coverage.DecodeBucket(0, p, axes, values)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "p"}, labels)
}

func TestDecodeBucketOffsetPoint(t *testing.T) {
	r := coveragetest.Pets()
	cats := r.PointRows[2]
	axes := coverage.Collect(r.Axes(cats.AxisStart, cats.AxisEnd))
	values := coverage.Collect(r.AxisValues(cats.AxisValueStart, cats.AxisValueEnd))

	labels, err := coverage.DecodeBucket(7, cats, axes, values)
	require.NoError(t, err)
	require.Equal(t, []string{"grumpy"}, labels)
	require.Equal(t, []string{"happy", "grumpy"}, coverage.AxisLabels(cats, axes[0], values))
}

func TestDecodeBucketEmptyAxis(t *testing.T) {
	_, err := coverage.DecodeBucket(0, coverage.Point{}, []coverage.Axis{{Name: "void"}}, nil)
	require.True(t, errors.Is(err, coverage.ErrEmptyAxis))
}

func TestMergeReadingRecomputesPointHits(t *testing.T) {
	base := coveragetest.Pets()

	m, err := coverage.NewMergeReading(base)
	require.NoError(t, err)
	require.Equal(t, base.PointHitRows, coverage.Collect(m.PointHits(0, coverage.All, 0)))

	require.NoError(t, m.Merge(coveragetest.Pets()))
	hits := coverage.Collect(m.BucketHits(0, coverage.All))
	require.Equal(t, 2, hits[0].Hits)
	require.Equal(t, 8, hits[6].Hits)

	// dogs: buckets 0,2,3,5 hit, 5 ignored, each clamped to target 1
	// cats: bucket 6 now 8 of 10
	require.Equal(t, []coverage.PointHit{
		{Start: 0, Depth: 0, Hits: 11, HitBuckets: 4, FullBuckets: 3},
		{Start: 0, Depth: 1, Hits: 3, HitBuckets: 3, FullBuckets: 3},
		{Start: 1, Depth: 1, Hits: 8, HitBuckets: 1, FullBuckets: 0},
	}, coverage.Collect(m.PointHits(0, coverage.All, 0)))
}

func TestMergeReadingRejectsOtherDefinitions(t *testing.T) {
	other := coveragetest.Pets()
	other.DefinitionSHA = "something-else"

	_, err := coverage.NewMergeReading(coveragetest.Pets(), other)
	require.ErrorIs(t, err, coverage.ErrSHAMismatch)
}

func TestMergeBySHA(t *testing.T) {
	other := coveragetest.Flat("flat", []string{"a", "b"}, []int{0, 1})

	merged, err := coverage.MergeBySHA([]coverage.Reading{
		coveragetest.Pets(), other, coveragetest.Pets(), coveragetest.Pets(),
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	require.Equal(t, "def-pets", merged[0].DefSHA())
	require.Equal(t, "flat", merged[1].DefSHA())
	require.Equal(t, 3, coverage.Collect(merged[0].BucketHits(0, 1))[0].Hits)

	merged, err = coverage.MergeBySHA(nil)
	require.NoError(t, err)
	require.Empty(t, merged)
}

func TestSliceReader(t *testing.T) {
	reader := coverage.SliceReader{coveragetest.Pets(), coveragetest.Pets()}

	r, err := reader.Read(1)
	require.NoError(t, err)
	require.Equal(t, "def-pets", r.DefSHA())

	_, err = reader.Read(2)
	require.ErrorIs(t, err, coverage.ErrRecordRange)

	count := 0
	for i := range reader.ReadAll() {
		require.Equal(t, count, i)
		count++
	}
	require.Equal(t, 2, count)
}

func TestSnapshot(t *testing.T) {
	m, err := coverage.NewMergeReading(coveragetest.Pets())
	require.NoError(t, err)
	snap := coverage.Snapshot(m)
	require.Equal(t, coveragetest.Pets(), snap)
}
