// Package covtree assembles coverage readings into a tree of points.
package covtree

import (
	"errors"
	"fmt"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

var (
	// ErrDepthSkip is returned when a point is more than one level deeper
	// than the point before it
	ErrDepthSkip = errors.New("point depth skips a level")

	// ErrPointHitMismatch is returned when the point and point hit tables of
	// a reading do not line up
	ErrPointHitMismatch = errors.New("point hits do not match points")
)

// View names
const (
	ViewSummary = "Summary"
	ViewPoint   = "Point"
	ViewPivot   = "Pivot"
)

// PointData is the payload of a coverage tree node
type PointData struct {
	Reading      coverage.Reading
	ReadingIndex int
	Point        coverage.Point
	PointHit     coverage.PointHit
}

// PointNode is a node of a coverage tree
type PointNode = tree.Node[PointData]

// CoverageTree is a tree of coverage points across one or more readings
type CoverageTree struct {
	*tree.Tree[PointData]
	readings []coverage.Reading
}

// FromReadings folds readings into a tree. Each reading's points must be in
// pre-order with explicit depths; a point at depth d becomes a child of the
// latest point at depth d-1, which may come from an earlier reading.
func FromReadings(readings []coverage.Reading) (*CoverageTree, error) {
	var roots []*PointNode
	var stack []*PointNode
	used := make(map[tree.Key]bool)

	for i, reading := range readings {
		for point, hit := range coverage.Zip(reading.Points(0, coverage.All, 0), reading.PointHits(0, coverage.All, 0)) {
			if hit == nil {
				return nil, fmt.Errorf("reading %d point %q (%d-%d): no point hit: %w",
					i, point.Name, point.Start, point.End, ErrPointHitMismatch)
			}
			if hit.Start != point.Start || hit.Depth != point.Depth {
				return nil, fmt.Errorf("reading %d point %q at %d/%d paired with hit at %d/%d: %w",
					i, point.Name, point.Start, point.Depth, hit.Start, hit.Depth, ErrPointHitMismatch)
			}
			if point.Depth < 0 || point.Depth > len(stack) {
				return nil, fmt.Errorf("reading %d point %q at depth %d under %d ancestors: %w",
					i, point.Name, point.Depth, len(stack), ErrDepthSkip)
			}

			key := NodeKey(i, point)
			if used[key] {
				// Only readings that do not number points by subtree size collide
				key = tree.Key(fmt.Sprintf("%s-%d", key, point.Depth))
			}
			used[key] = true

			node := &PointNode{
				Key:      key,
				Title:    point.Name,
				Children: []*PointNode{},
				Data: PointData{
					Reading:      reading,
					ReadingIndex: i,
					Point:        point,
					PointHit:     *hit,
				},
			}

			stack = stack[:point.Depth]
			if point.Depth == 0 {
				roots = append(roots, node)
			} else {
				parent := stack[point.Depth-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		}

		if extra := countAfter(reading); extra > 0 {
			return nil, fmt.Errorf("reading %d has %d point hits without points: %w", i, extra, ErrPointHitMismatch)
		}
	}

	t, err := tree.New(roots)
	if err != nil {
		return nil, fmt.Errorf("build coverage tree: %w", err)
	}
	return &CoverageTree{Tree: t, readings: readings}, nil
}

func countAfter(r coverage.Reading) int {
	points, hits := 0, 0
	for range r.Points(0, coverage.All, 0) {
		points++
	}
	for range r.PointHits(0, coverage.All, 0) {
		hits++
	}
	return hits - points
}

// NodeKey returns the key of a point within the reading at index i. When two
// points of a reading share a key, FromReadings suffixes the later one with
// its depth.
func NodeKey(i int, p coverage.Point) tree.Key {
	return tree.Key(fmt.Sprintf("%d-%d-%d", i, p.Start, p.End))
}

// Readings returns the readings the tree was built from
func (c *CoverageTree) Readings() []coverage.Reading {
	return c.readings
}

// ViewsByKey returns the views available for a node: a summary for nodes
// with children, a point and pivot grid for leaves.
func (c *CoverageTree) ViewsByKey(key tree.Key) []tree.View {
	node := c.NodeByKey(key)
	if key == tree.Root || len(node.Children) > 0 {
		return []tree.View{{Value: ViewSummary, Icon: "table"}}
	}
	return []tree.View{
		{Value: ViewPoint, Icon: "table"},
		{Value: ViewPivot, Icon: "layout"},
	}
}

var _ tree.Viewer[PointData] = (*CoverageTree)(nil)
