package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/report"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

var (
	// Show command flags
	showView    string
	showSort    string
	showDesc    bool
	showClasses []string
	showRow     string
	showCol     string
	showSearch  string

	showCmd = &cobra.Command{
		Use:   "show [node-key]",
		Short: "Print the coverage tree or one node as a table",
		Long: `Print the coverage tree, or a view of one node. Groups default to the
summary view and coverpoints to the point view; use --view to pick another.

Views:
  tree     every node indented by depth with its key
  summary  the node and everything below it
  point    one row per bucket of a coverpoint
  pivot    hit ratios of a coverpoint crossed on two axes`,
		Example: `  # Print the whole tree with node keys
  coverage-viewer show --report results.json

  # Summarise a group, sorted by hit ratio
  coverage-viewer show 0-0-12 --report results.json --sort hit_ratio

  # List the empty and partial buckets of a coverpoint
  coverage-viewer show 0-3-4 --report results.json --class empty --class partial

  # Pivot a coverpoint on two axes
  coverage-viewer show 0-3-4 --report results.json --view pivot --row size --col colour`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShow,
	}
)

func init() {
	showCmd.Flags().StringVar(&showView, "view", "", "View to print (tree, summary, point, pivot)")
	showCmd.Flags().StringVar(&showSort, "sort", "", "Column to sort rows by")
	showCmd.Flags().BoolVar(&showDesc, "desc", false, "Sort descending")
	showCmd.Flags().StringArrayVar(&showClasses, "class", nil, "Only buckets of this class (full, partial, empty, illegal, ignore; repeatable)")
	showCmd.Flags().StringVar(&showRow, "row", "", "Pivot row axis (defaults to the first axis)")
	showCmd.Flags().StringVar(&showCol, "col", "", "Pivot column axis (all values when empty)")
	showCmd.Flags().StringVar(&showSearch, "search", "", "Print the keys of nodes whose title contains this text")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	ct, err := loadTree(logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if showSearch != "" {
		for _, key := range ct.Matches(showSearch) {
			fmt.Fprintf(out, "%s\t%s\n", key, ct.NodeByKey(key).Title)
		}
		return nil
	}

	key := tree.Root
	if len(args) == 1 {
		key = tree.Key(args[0])
	}
	node, ok := ct.Lookup(key)
	if !ok {
		return fmt.Errorf("unknown node %q", key)
	}

	view := showView
	if view == "" {
		view = "summary"
		if key == tree.Root {
			view = "tree"
		} else if node.IsLeaf() {
			view = "point"
		}
	}

	switch view {
	case "tree":
		return report.WriteTree(out, ct)
	case "summary":
		rows, err := grid.SummaryGrid(ct, key)
		if err != nil {
			return err
		}
		if showSort != "" {
			if err := grid.SortRows(rows, showSort, showDesc); err != nil {
				return err
			}
		}
		return report.WriteSummary(out, rows)
	case "point":
		if key == tree.Root || !node.IsLeaf() {
			return fmt.Errorf("node %q is not a coverpoint", key)
		}
		pt, err := grid.PointGrid(node)
		if err != nil {
			return err
		}
		rows, err := filterBuckets(pt.Rows)
		if err != nil {
			return err
		}
		if showSort != "" {
			if err := grid.SortRows(rows, showSort, showDesc); err != nil {
				return err
			}
		}
		return report.WritePoints(out, pt, rows)
	case "pivot":
		if key == tree.Root || !node.IsLeaf() {
			return fmt.Errorf("node %q is not a coverpoint", key)
		}
		pv, err := pivot(node)
		if err != nil {
			return err
		}
		return report.WritePivot(out, pv)
	default:
		return fmt.Errorf("unknown view %q (valid: tree, summary, point, pivot)", view)
	}
}

func filterBuckets(rows []grid.BucketRow) ([]grid.BucketRow, error) {
	if len(showClasses) == 0 {
		return rows, nil
	}
	classes := make([]grid.Class, 0, len(showClasses))
	for _, name := range showClasses {
		c, err := grid.ParseClass(name)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return grid.Filter(rows, classes...), nil
}

func pivot(node *covtree.PointNode) (*grid.PivotTable, error) {
	row := showRow
	if row == "" {
		pt, err := grid.PointGrid(node)
		if err != nil {
			return nil, err
		}
		names := pt.AxisNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("coverpoint %q has no axes", node.Title)
		}
		row = names[0]
	}
	return grid.PivotGrid(node, row, showCol)
}
