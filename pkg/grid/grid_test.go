package grid

import (
	"encoding/json"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/coverage/coveragetest"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

func petsTree(t *testing.T) *covtree.CoverageTree {
	t.Helper()
	ct, err := covtree.FromReadings([]coverage.Reading{coveragetest.Pets()})
	require.NoError(t, err)
	return ct
}

func TestFormatRatio(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "-"},
		{math.Copysign(0, -1), "-"},
		{-1, "!!!"},
		{0, "0.0%"},
		{7.0 / 15.0, "46.7%"},
		{1, "100.0%"},
		{1.5, "100.0%"},
		{math.Inf(1), "100.0%"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatRatio(tt.in), "ratio %v", tt.in)
	}
}

func TestNewRatioSemantics(t *testing.T) {
	require.True(t, math.IsNaN(float64(NewRatio(0, 0))))
	require.True(t, IsNegZero(float64(NewRatio(0, -1))))
	require.Equal(t, Ratio(-3), NewRatio(3, -1))
	require.True(t, math.IsInf(float64(NewRatio(2, 0)), 1))
}

func TestRatioJSON(t *testing.T) {
	b, err := json.Marshal([]Ratio{NewRatio(1, 2), NewRatio(0, 0), NewRatio(0, -1), NewRatio(1, 0)})
	require.NoError(t, err)
	require.JSONEq(t, `[0.5, "NaN", -0, "+Inf"]`, string(b))

	var back []Ratio
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, Ratio(0.5), back[0])
	require.True(t, math.IsNaN(float64(back[1])))
	require.True(t, IsNegZero(float64(back[2])))
	require.True(t, math.IsInf(float64(back[3]), 1))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		target, hits int
		want         Class
	}{
		{1, 1, ClassFull},
		{1, 5, ClassFull},
		{10, 4, ClassPartial},
		{10, 0, ClassEmpty},
		{-1, 0, ClassIllegal},
		{-1, 2, ClassIllegal},
		{0, 3, ClassIgnore},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Classify(tt.target, tt.hits), "target %d hits %d", tt.target, tt.hits)
	}

	c, err := ParseClass("partial")
	require.NoError(t, err)
	require.Equal(t, ClassPartial, c)
	_, err = ParseClass("bogus")
	require.Error(t, err)
}

func TestNumCompare(t *testing.T) {
	values := []float64{1, 0, math.NaN(), -2, math.Copysign(0, -1), math.Inf(1)}
	slices.SortFunc(values, NumCompare)

	require.True(t, math.IsNaN(values[0]))
	require.Equal(t, -2.0, values[1])
	require.True(t, IsNegZero(values[2]))
	require.False(t, IsNegZero(values[3]))
	require.Equal(t, 0.0, values[3])
	require.Equal(t, 1.0, values[4])
	require.True(t, math.IsInf(values[5], 1))
}

func TestNaturalCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"bucket 9", "bucket 10", -1},
		{"bucket 10", "bucket 9", 1},
		{"a", "b", -1},
		{"x2y", "x2y", 0},
		{"a", "a1", -1},
		{"10", "9", 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NaturalCompare(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestPointGrid(t *testing.T) {
	ct := petsTree(t)

	dogs, err := PointGrid(ct.NodeByKey("0-0-1"))
	require.NoError(t, err)
	require.Equal(t, []string{"size", "colour"}, dogs.AxisNames())
	require.Len(t, dogs.Rows, 6)

	first := dogs.Rows[0]
	require.Equal(t, 0, first.Bucket)
	require.Equal(t, map[string]string{"size": "small", "colour": "red"}, first.Labels)
	require.Equal(t, "DEFAULT", first.GoalName)
	require.Equal(t, Ratio(1), first.HitRatio)

	last := dogs.Rows[5]
	require.Equal(t, map[string]string{"size": "large", "colour": "blue"}, last.Labels)
	require.Equal(t, "IGNORE", last.GoalName)
	require.Equal(t, ClassIgnore, last.Class())

	cats, err := PointGrid(ct.NodeByKey("0-1-2"))
	require.NoError(t, err)
	require.Len(t, cats.Rows, 2)
	require.Equal(t, 6, cats.Rows[0].Bucket)
	require.Equal(t, "happy", cats.Rows[0].Labels["mood"])
	require.Equal(t, "40.0%", cats.Rows[0].HitRatio.String())
	require.Equal(t, "grumpy", cats.Rows[1].Labels["mood"])
	require.True(t, IsNegZero(float64(cats.Rows[1].HitRatio)))
}

func TestFilter(t *testing.T) {
	dogs, err := PointGrid(petsTree(t).NodeByKey("0-0-1"))
	require.NoError(t, err)

	full := Filter(dogs.Rows, ClassFull)
	var buckets []int
	for _, r := range full {
		buckets = append(buckets, r.Bucket)
	}
	require.Equal(t, []int{0, 2, 3}, buckets)

	require.Len(t, Filter(dogs.Rows, ClassEmpty, ClassIgnore), 3)
	require.Empty(t, Filter(dogs.Rows, ClassIllegal))
}

func TestSummaryGrid(t *testing.T) {
	ct := petsTree(t)

	rows, err := SummaryGrid(ct, tree.Root)
	require.NoError(t, err)
	var paths []string
	for _, r := range rows {
		paths = append(paths, r.Path)
	}
	require.Equal(t, []string{"top", "top / dogs", "top / cats"}, paths)
	require.Equal(t, 7, rows[0].Hits)
	require.Equal(t, NewRatio(4, 6), rows[0].BucketsHitRatio)

	rows, err = SummaryGrid(ct, "0-0-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "dogs", rows[0].Path)
	require.Equal(t, tree.Key("0-0-1"), rows[0].Key)

	_, err = SummaryGrid(ct, "nope")
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestSortRows(t *testing.T) {
	rows, err := SummaryGrid(petsTree(t), tree.Root)
	require.NoError(t, err)

	require.NoError(t, SortRows(rows, "hit_ratio", false))
	require.Equal(t, "top / cats", rows[0].Path)
	require.Equal(t, "top", rows[1].Path)
	require.Equal(t, "top / dogs", rows[2].Path)

	require.NoError(t, SortRows(rows, "path", true))
	require.Equal(t, "top / dogs", rows[0].Path)

	require.ErrorIs(t, SortRows(rows, "bogus", false), ErrUnknownColumn)
}

func TestSortBucketsByAxis(t *testing.T) {
	dogs, err := PointGrid(petsTree(t).NodeByKey("0-0-1"))
	require.NoError(t, err)

	require.NoError(t, SortRows(dogs.Rows, "colour", false))
	var colours []string
	for _, r := range dogs.Rows {
		colours = append(colours, r.Labels["colour"])
	}
	require.Equal(t, []string{"blue", "blue", "green", "green", "red", "red"}, colours)
	// Stable within equal labels
	require.Equal(t, 2, dogs.Rows[0].Bucket)
	require.Equal(t, 5, dogs.Rows[1].Bucket)
}

func TestPivotGrid(t *testing.T) {
	ct := petsTree(t)
	dogs := ct.NodeByKey("0-0-1")

	pv, err := PivotGrid(dogs, "size", "colour")
	require.NoError(t, err)
	require.Equal(t, []string{"small", "large"}, pv.Rows)
	require.Equal(t, []string{"red", "green", "blue"}, pv.Cols)
	require.Equal(t, PivotCell{Target: 1, Hits: 1, Ratio: 1}, pv.Cells[0][2])
	require.Equal(t, 0, pv.Cells[1][1].Hits)
	require.True(t, math.IsNaN(float64(pv.Cells[1][2].Ratio)))

	pv, err = PivotGrid(dogs, "size", "")
	require.NoError(t, err)
	require.Equal(t, []string{"*"}, pv.Cols)
	require.Equal(t, 3, pv.Cells[0][0].Target)
	require.Equal(t, 2, pv.Cells[0][0].Hits)
	require.Equal(t, 2, pv.Cells[1][0].Target)
	require.Equal(t, 1, pv.Cells[1][0].Hits)

	_, err = PivotGrid(dogs, "mood", "")
	require.ErrorIs(t, err, ErrUnknownAxis)
	_, err = PivotGrid(dogs, "size", "size")
	require.ErrorIs(t, err, ErrPivotAxes)
}

func TestPivotGridIllegalHits(t *testing.T) {
	r := coveragetest.Pets()
	r.BucketHitRows[7].Hits = 2
	ct, err := covtree.FromReadings([]coverage.Reading{r})
	require.NoError(t, err)

	pv, err := PivotGrid(ct.NodeByKey("0-1-2"), "mood", "")
	require.NoError(t, err)
	require.Equal(t, 2, pv.Cells[1][0].Illegal)
	require.Equal(t, "!!!", pv.Cells[1][0].Ratio.String())
}

func TestShade(t *testing.T) {
	require.Equal(t, Style{}, Shade(math.NaN()))
	require.Equal(t, Style{}, Shade(math.Copysign(0, -1)))
	require.Equal(t, Style{Background: DefaultPalette.Good}, Shade(1))
	require.Equal(t, Style{Background: DefaultPalette.Good}, Shade(math.Inf(1)))
	require.Equal(t, Style{Background: DefaultPalette.Bad, Bold: true}, Shade(0))
	require.Equal(t, Style{Background: DefaultPalette.Bad, Bold: true}, Shade(-2))

	// Halfway sits at 40% along the hue arc from red to green
	require.Equal(t, Style{Background: "#ffdb4b"}, Shade(0.5))

	require.Equal(t, Style{}, Palette{Good: "green", Bad: "red"}.Shade(0.5))
}
