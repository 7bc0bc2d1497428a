package grid

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

var (
	// ErrUnknownKey is returned for a node key that is not in the tree
	ErrUnknownKey = errors.New("unknown node key")

	// ErrUnknownAxis is returned when a pivot names an axis the point lacks
	ErrUnknownAxis = errors.New("unknown axis")

	// ErrPivotAxes is returned when a pivot uses the same axis twice
	ErrPivotAxes = errors.New("pivot row and column axes must differ")

	// ErrGoalRange is returned when a bucket refers to a goal outside its point
	ErrGoalRange = errors.New("bucket goal outside point goals")
)

// BucketRow is one bucket of a point grid
type BucketRow struct {
	Bucket          int               `json:"bucket"`
	Labels          map[string]string `json:"axes"`
	GoalName        string            `json:"goal_name"`
	GoalDescription string            `json:"goal_description"`
	Target          int               `json:"target"`
	Hits            int               `json:"hits"`
	HitRatio        Ratio             `json:"hit_ratio"`
}

// Class returns the bucket's ratio class
func (r BucketRow) Class() Class {
	return Classify(r.Target, r.Hits)
}

// Field implements Fielder. Axis names resolve to the bucket's label.
func (r BucketRow) Field(column string) (any, bool) {
	switch column {
	case "bucket":
		return r.Bucket, true
	case "goal_name":
		return r.GoalName, true
	case "goal_description":
		return r.GoalDescription, true
	case "target":
		return r.Target, true
	case "hits":
		return r.Hits, true
	case "hit_ratio":
		return r.HitRatio, true
	}
	v, ok := r.Labels[column]
	return v, ok
}

// PointTable is the per-bucket view of a leaf point
type PointTable struct {
	Axes  []coverage.Axis   `json:"axes"`
	Goals []coverage.Goal   `json:"goals"`
	Rows  []BucketRow       `json:"rows"`
	Point coverage.Point    `json:"point"`
	Hit   coverage.PointHit `json:"point_hit"`
}

// AxisNames returns the point's axis names in order
func (t *PointTable) AxisNames() []string {
	names := make([]string, len(t.Axes))
	for i, a := range t.Axes {
		names[i] = a.Name
	}
	return names
}

// PointGrid lists every bucket of a point with its axis labels, goal and hits
func PointGrid(node *covtree.PointNode) (*PointTable, error) {
	reading := node.Data.Reading
	p := node.Data.Point

	axes := coverage.Collect(reading.Axes(p.AxisStart, p.AxisEnd))
	values := coverage.Collect(reading.AxisValues(p.AxisValueStart, p.AxisValueEnd))
	goals := coverage.Collect(reading.Goals(p.GoalStart, p.GoalEnd))

	table := &PointTable{Axes: axes, Goals: goals, Point: p, Hit: node.Data.PointHit}
	bucketGoals := reading.BucketGoals(p.BucketStart, p.BucketEnd)
	for bg, bh := range coverage.Zip(bucketGoals, reading.BucketHits(p.BucketStart, p.BucketEnd)) {
		gi := bg.Goal - p.GoalStart
		if gi < 0 || gi >= len(goals) {
			return nil, fmt.Errorf("point %q bucket %d goal %d: %w", p.Name, bg.Start, bg.Goal, ErrGoalRange)
		}
		goal := goals[gi]

		labels, err := coverage.DecodeBucket(bg.Start, p, axes, values)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", p.Name, err)
		}
		row := BucketRow{
			Bucket:          bg.Start,
			Labels:          make(map[string]string, len(axes)),
			GoalName:        goal.Name,
			GoalDescription: goal.Description,
			Target:          goal.Target,
		}
		for i, a := range axes {
			row.Labels[a.Name] = labels[i]
		}
		if bh != nil {
			row.Hits = bh.Hits
		}
		row.HitRatio = NewRatio(row.Hits, row.Target)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Filter keeps the rows whose class is one of classes
func Filter(rows []BucketRow, classes ...Class) []BucketRow {
	var out []BucketRow
	for _, r := range rows {
		if slices.Contains(classes, r.Class()) {
			out = append(out, r)
		}
	}
	return out
}

// SummaryRow is one node of a summary grid
type SummaryRow struct {
	Key              tree.Key `json:"key"`
	Path             string   `json:"path"`
	Description      string   `json:"description"`
	Target           int      `json:"target"`
	Hits             int      `json:"hits"`
	HitRatio         Ratio    `json:"hit_ratio"`
	TargetBuckets    int      `json:"target_buckets"`
	HitBuckets       int      `json:"hit_buckets"`
	FullBuckets      int      `json:"full_buckets"`
	BucketsHitRatio  Ratio    `json:"buckets_hit_ratio"`
	BucketsFullRatio Ratio    `json:"buckets_full_ratio"`
}

// Field implements Fielder
func (r SummaryRow) Field(column string) (any, bool) {
	switch column {
	case "key":
		return string(r.Key), true
	case "path":
		return r.Path, true
	case "description":
		return r.Description, true
	case "target":
		return r.Target, true
	case "hits":
		return r.Hits, true
	case "hit_ratio":
		return r.HitRatio, true
	case "target_buckets":
		return r.TargetBuckets, true
	case "hit_buckets":
		return r.HitBuckets, true
	case "full_buckets":
		return r.FullBuckets, true
	case "buckets_hit_ratio":
		return r.BucketsHitRatio, true
	case "buckets_full_ratio":
		return r.BucketsFullRatio, true
	}
	return nil, false
}

// PathSeparator joins titles in summary paths
const PathSeparator = " / "

// SummaryGrid lists the selected node and everything below it in pre-order.
// Paths start at the selected node, or at the top-level node for Root.
func SummaryGrid(ct *covtree.CoverageTree, key tree.Key) ([]SummaryRow, error) {
	node, ok := ct.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("summarise %q: %w", key, ErrUnknownKey)
	}

	var walk iter.Seq2[*covtree.PointNode, *covtree.PointNode]
	if key == tree.Root {
		walk = ct.Walk()
	} else {
		walk = ct.WalkFrom([]*covtree.PointNode{node}, nil)
	}

	skip := len(ct.AncestorsByKey(key)) - 1
	var rows []SummaryRow
	for sub := range walk {
		chain := ct.AncestorsByKey(sub.Key)[skip:]
		titles := make([]string, len(chain))
		for i, n := range chain {
			titles[i] = n.Title
		}
		p, ph := sub.Data.Point, sub.Data.PointHit
		rows = append(rows, SummaryRow{
			Key:              sub.Key,
			Path:             strings.Join(titles, PathSeparator),
			Description:      p.Description,
			Target:           p.Target,
			Hits:             ph.Hits,
			HitRatio:         NewRatio(ph.Hits, p.Target),
			TargetBuckets:    p.TargetBuckets,
			HitBuckets:       ph.HitBuckets,
			FullBuckets:      ph.FullBuckets,
			BucketsHitRatio:  NewRatio(ph.HitBuckets, p.TargetBuckets),
			BucketsFullRatio: NewRatio(ph.FullBuckets, p.TargetBuckets),
		})
	}
	return rows, nil
}

// PivotCell aggregates the buckets sharing one row and column label. Hits
// are clamped to each bucket's target; ignored buckets do not count and
// hits on illegal buckets are counted separately.
type PivotCell struct {
	Target  int   `json:"target"`
	Hits    int   `json:"hits"`
	Illegal int   `json:"illegal"`
	Ratio   Ratio `json:"ratio"`
}

// PivotTable crosses two axes of a point
type PivotTable struct {
	RowAxis string        `json:"row_axis"`
	ColAxis string        `json:"col_axis"`
	Rows    []string      `json:"rows"`
	Cols    []string      `json:"cols"`
	Cells   [][]PivotCell `json:"cells"`
}

// PivotGrid sums a point grid over every axis except rowAxis and colAxis.
// An empty colAxis gives a single column covering all values.
func PivotGrid(node *covtree.PointNode, rowAxis, colAxis string) (*PivotTable, error) {
	pt, err := PointGrid(node)
	if err != nil {
		return nil, err
	}

	labelsOf := func(name string) ([]string, error) {
		for _, a := range pt.Axes {
			if a.Name == name {
				values := coverage.Collect(node.Data.Reading.AxisValues(pt.Point.AxisValueStart, pt.Point.AxisValueEnd))
				return coverage.AxisLabels(pt.Point, a, values), nil
			}
		}
		return nil, fmt.Errorf("pivot point %q on %q: %w", pt.Point.Name, name, ErrUnknownAxis)
	}

	rows, err := labelsOf(rowAxis)
	if err != nil {
		return nil, err
	}
	cols := []string{"*"}
	if colAxis != "" {
		if colAxis == rowAxis {
			return nil, fmt.Errorf("pivot point %q on %q twice: %w", pt.Point.Name, rowAxis, ErrPivotAxes)
		}
		if cols, err = labelsOf(colAxis); err != nil {
			return nil, err
		}
	}

	out := &PivotTable{RowAxis: rowAxis, ColAxis: colAxis, Rows: rows, Cols: cols}
	out.Cells = make([][]PivotCell, len(rows))
	for i := range out.Cells {
		out.Cells[i] = make([]PivotCell, len(cols))
	}

	for _, b := range pt.Rows {
		ri := slices.Index(rows, b.Labels[rowAxis])
		ci := 0
		if colAxis != "" {
			ci = slices.Index(cols, b.Labels[colAxis])
		}
		if ri < 0 || ci < 0 {
			continue
		}
		cell := &out.Cells[ri][ci]
		switch {
		case b.Target > 0:
			cell.Target += b.Target
			cell.Hits += min(b.Hits, b.Target)
		case b.Target < 0:
			cell.Illegal += b.Hits
		}
	}

	for i := range out.Cells {
		for j := range out.Cells[i] {
			cell := &out.Cells[i][j]
			if cell.Illegal > 0 {
				cell.Ratio = Ratio(-cell.Illegal)
			} else {
				cell.Ratio = NewRatio(cell.Hits, cell.Target)
			}
		}
	}
	return out, nil
}
