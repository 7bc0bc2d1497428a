package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteTree prints the tree indented by depth with each node's key and hits
func WriteTree(w io.Writer, ct *covtree.CoverageTree) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NODE\tKEY\tHITS\tTARGET\tRATIO")

	depth := map[*covtree.PointNode]int{}
	for n, parent := range ct.Walk() {
		d := 0
		if parent != nil {
			d = depth[parent] + 1
		}
		depth[n] = d
		ph, p := n.Data.PointHit, n.Data.Point
		fmt.Fprintf(tw, "%s%s\t%s\t%d\t%d\t%s\n",
			strings.Repeat("  ", d), n.Title, n.Key, ph.Hits, p.Target, grid.NewRatio(ph.Hits, p.Target))
	}
	return tw.Flush()
}

// WriteSummary prints summary rows as a table
func WriteSummary(w io.Writer, rows []grid.SummaryRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PATH\tTARGET\tHITS\tHIT %\tBUCKETS\tHIT\tFULL\tFULL %")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%d\t%d\t%s\n",
			r.Path, r.Target, r.Hits, r.HitRatio, r.TargetBuckets, r.HitBuckets, r.FullBuckets, r.BucketsFullRatio)
	}
	return tw.Flush()
}

// WritePoints prints the bucket rows of a point table
func WritePoints(w io.Writer, pt *grid.PointTable, rows []grid.BucketRow) error {
	tw := newTable(w)
	axes := pt.AxisNames()

	header := append([]string{"BUCKET"}, axes...)
	header = append(header, "GOAL", "TARGET", "HITS", "HIT %")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range rows {
		cells := []string{fmt.Sprint(r.Bucket)}
		for _, a := range axes {
			cells = append(cells, r.Labels[a])
		}
		cells = append(cells, r.GoalName, fmt.Sprint(r.Target), fmt.Sprint(r.Hits), r.HitRatio.String())
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// WritePivot prints a pivot table with one row per row-axis value
func WritePivot(w io.Writer, pv *grid.PivotTable) error {
	tw := newTable(w)

	corner := pv.RowAxis
	if pv.ColAxis != "" {
		corner += " \\ " + pv.ColAxis
	}
	fmt.Fprintln(tw, corner+"\t"+strings.Join(pv.Cols, "\t"))

	for i, label := range pv.Rows {
		cells := []string{label}
		for _, c := range pv.Cells[i] {
			cells = append(cells, c.Ratio.String())
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
