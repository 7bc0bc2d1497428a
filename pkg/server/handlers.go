package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/report"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

// treeNode is the nested form of the tree served by /api/tree
type treeNode struct {
	Key      tree.Key   `json:"key"`
	Title    string     `json:"title"`
	Target   int        `json:"target"`
	Hits     int        `json:"hits"`
	HitRatio grid.Ratio `json:"hit_ratio"`
	Children []treeNode `json:"children,omitempty"`
}

func nest(nodes []*covtree.PointNode) []treeNode {
	out := make([]treeNode, 0, len(nodes))
	for _, n := range nodes {
		p, ph := n.Data.Point, n.Data.PointHit
		out = append(out, treeNode{
			Key:      n.Key,
			Title:    n.Title,
			Target:   p.Target,
			Hits:     ph.Hits,
			HitRatio: grid.NewRatio(ph.Hits, p.Target),
			Children: nest(n.Children),
		})
	}
	return out
}

// nodeDetail is served by /api/nodes/{key}
type nodeDetail struct {
	Key           tree.Key           `json:"key"`
	Title         string             `json:"title"`
	Leaf          bool               `json:"leaf"`
	Views         []tree.View        `json:"views"`
	Children      []tree.MenuItem    `json:"children"`
	ReadingIndex  int                `json:"reading_index,omitempty"`
	DefinitionSHA string             `json:"definition_sha,omitempty"`
	RecordSHA     string             `json:"record_sha,omitempty"`
	Point         *coverage.Point    `json:"point,omitempty"`
	PointHit      *coverage.PointHit `json:"point_hit,omitempty"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"key":      tree.Root,
		"title":    s.tree.RootNode().Title,
		"children": nest(s.tree.Roots()),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	expand := s.tree.Search(q)
	matches := s.tree.Matches(q)
	if expand == nil {
		expand = []tree.Key{}
	}
	if matches == nil {
		matches = []tree.Key{}
	}
	writeJSON(w, map[string]any{"expand": expand, "matches": matches})
}

// node resolves the {key} URL parameter, writing a 404 when it is unknown
func (s *Server) node(w http.ResponseWriter, r *http.Request) (*covtree.PointNode, bool) {
	key := tree.Key(chi.URLParam(r, "key"))
	n, ok := s.tree.Lookup(key)
	if !ok {
		jsonError(w, "unknown node: "+string(key), http.StatusNotFound)
		return nil, false
	}
	return n, true
}

// leaf resolves {key} and requires a coverpoint
func (s *Server) leaf(w http.ResponseWriter, r *http.Request) (*covtree.PointNode, bool) {
	n, ok := s.node(w, r)
	if !ok {
		return nil, false
	}
	if n.Key == tree.Root || !n.IsLeaf() {
		jsonError(w, "node "+string(n.Key)+" is not a coverpoint", http.StatusBadRequest)
		return nil, false
	}
	return n, true
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	n, ok := s.node(w, r)
	if !ok {
		return
	}

	detail := nodeDetail{
		Key:      n.Key,
		Title:    n.Title,
		Leaf:     n.Key != tree.Root && n.IsLeaf(),
		Views:    s.tree.ViewsByKey(n.Key),
		Children: make([]tree.MenuItem, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		detail.Children = append(detail.Children, tree.MenuItem{Key: c.Key, Title: c.Title})
	}
	if n.Key != tree.Root {
		d := n.Data
		detail.ReadingIndex = d.ReadingIndex
		detail.DefinitionSHA = d.Reading.DefSHA()
		detail.RecordSHA = d.Reading.RecSHA()
		detail.Point = &d.Point
		detail.PointHit = &d.PointHit
	}
	writeJSON(w, detail)
}

func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	n, ok := s.node(w, r)
	if !ok {
		return
	}
	chain := s.tree.AncestorsByKey(n.Key)
	out := make([]tree.MenuItem, 0, len(chain))
	for _, a := range chain {
		out = append(out, tree.MenuItem{Key: a.Key, Title: a.Title})
	}
	writeJSON(w, out)
}

func (s *Server) handleBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	n, ok := s.node(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.tree.Breadcrumbs(n.Key))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	n, ok := s.node(w, r)
	if !ok {
		return
	}
	rows, err := grid.SummaryGrid(s.tree, n.Key)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !sortRows(w, r, rows) {
		return
	}
	writeJSON(w, map[string]any{"rows": rows})
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	n, ok := s.leaf(w, r)
	if !ok {
		return
	}
	pt, err := grid.PointGrid(n)
	if err != nil {
		jsonError(w, "point grid: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if names := r.URL.Query()["class"]; len(names) > 0 {
		classes := make([]grid.Class, 0, len(names))
		for _, name := range names {
			c, err := grid.ParseClass(name)
			if err != nil {
				jsonError(w, err.Error(), http.StatusBadRequest)
				return
			}
			classes = append(classes, c)
		}
		pt.Rows = grid.Filter(pt.Rows, classes...)
	}
	if !sortRows(w, r, pt.Rows) {
		return
	}
	writeJSON(w, pt)
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	n, ok := s.leaf(w, r)
	if !ok {
		return
	}
	row, col := r.URL.Query().Get("row"), r.URL.Query().Get("col")
	if row == "" {
		axes := coverage.Collect(n.Data.Reading.Axes(n.Data.Point.AxisStart, n.Data.Point.AxisEnd))
		if len(axes) == 0 {
			jsonError(w, "point has no axes", http.StatusBadRequest)
			return
		}
		row = axes[0].Name
	}

	pv, err := grid.PivotGrid(n, row, col)
	switch {
	case errors.Is(err, grid.ErrUnknownAxis), errors.Is(err, grid.ErrPivotAxes):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, "pivot grid: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, pv)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := report.WriteHTML(w, s.tree, report.Options{Title: s.opts.Title, Palette: s.opts.Palette})
	if err != nil {
		s.log.Error("render report: %v", err)
	}
}

// sortRows applies the sort and desc query parameters, writing a 400 for an
// unknown column
func sortRows[R grid.Fielder](w http.ResponseWriter, r *http.Request, rows []R) bool {
	column := r.URL.Query().Get("sort")
	if column == "" {
		return true
	}
	desc, _ := strconv.ParseBool(r.URL.Query().Get("desc"))
	if err := grid.SortRows(rows, column, desc); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
