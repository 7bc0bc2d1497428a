// Package report renders coverage trees as static HTML pages and console
// tables.
package report

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

// Options control an HTML report
type Options struct {
	Title     string
	Palette   grid.Palette
	Generated time.Time
}

// Stats aggregate the top-level points of a tree
type Stats struct {
	Points        int
	Leaves        int
	Target        int
	Hits          int
	HitRatio      grid.Ratio
	TargetBuckets int
	HitBuckets    int
	FullBuckets   int
	FullRatio     grid.Ratio
}

// Summarize totals the top-level points of ct
func Summarize(ct *covtree.CoverageTree) Stats {
	var s Stats
	for n := range ct.Walk() {
		s.Points++
		if n.IsLeaf() {
			s.Leaves++
		}
	}
	for _, n := range ct.Roots() {
		s.Target += n.Data.Point.Target
		s.Hits += n.Data.PointHit.Hits
		s.TargetBuckets += n.Data.Point.TargetBuckets
		s.HitBuckets += n.Data.PointHit.HitBuckets
		s.FullBuckets += n.Data.PointHit.FullBuckets
	}
	s.HitRatio = grid.NewRatio(s.Hits, s.Target)
	s.FullRatio = grid.NewRatio(s.FullBuckets, s.TargetBuckets)
	return s
}

type leafSection struct {
	Key    tree.Key
	Path   string
	Table  *grid.PointTable
	Labels []string
}

// WriteHTML renders a self-contained page with the tree, the summary table
// and the bucket grid of every leaf
func WriteHTML(w io.Writer, ct *covtree.CoverageTree, opts Options) error {
	if opts.Palette == (grid.Palette{}) {
		opts.Palette = grid.DefaultPalette
	}
	if opts.Title == "" {
		opts.Title = "Coverage Report"
	}

	summary, err := grid.SummaryGrid(ct, tree.Root)
	if err != nil {
		return fmt.Errorf("summarise tree: %w", err)
	}

	paths := make(map[tree.Key]string, len(summary))
	for _, row := range summary {
		paths[row.Key] = row.Path
	}

	var leaves []leafSection
	for n := range ct.Walk() {
		if !n.IsLeaf() {
			continue
		}
		pt, err := grid.PointGrid(n)
		if err != nil {
			return fmt.Errorf("bucket grid for %q: %w", n.Key, err)
		}
		leaves = append(leaves, leafSection{Key: n.Key, Path: paths[n.Key], Table: pt, Labels: pt.AxisNames()})
	}

	tmpl, err := template.New("report").Funcs(funcMap(opts.Palette)).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	data := struct {
		Title     string
		Generated time.Time
		Stats     Stats
		Roots     []*covtree.PointNode
		Summary   []grid.SummaryRow
		Leaves    []leafSection
	}{
		Title:     opts.Title,
		Generated: opts.Generated,
		Stats:     Summarize(ct),
		Roots:     ct.Roots(),
		Summary:   summary,
		Leaves:    leaves,
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	if err := tmpl.Execute(bw, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return bw.Flush()
}

// WriteHTMLFile renders the report to path
func WriteHTMLFile(path string, ct *covtree.CoverageTree, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := WriteHTML(f, ct, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func funcMap(p grid.Palette) template.FuncMap {
	return template.FuncMap{
		"formatRatio": func(r grid.Ratio) string {
			return r.String()
		},
		"shade": func(r grid.Ratio) template.CSS {
			s := p.Shade(float64(r))
			var b strings.Builder
			if s.Background != "" {
				fmt.Fprintf(&b, "background-color: %s;", s.Background)
			}
			if s.Bold {
				b.WriteString(" font-weight: bold;")
			}
			return template.CSS(b.String())
		},
		"formatInt": formatInt,
		"label": func(labels map[string]string, axis string) string {
			return labels[axis]
		},
		"anchor": func(k tree.Key) string {
			return "node-" + string(k)
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		},
	}
}

// formatInt groups digits in thousands
func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var result []byte
	if neg {
		result = append(result, '-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: #f5f5f5;
            padding: 20px;
            line-height: 1.6;
        }
        .container { max-width: 1600px; margin: 0 auto; display: flex; gap: 20px; }
        nav { flex: 0 0 300px; background: white; border-radius: 8px; padding: 16px; overflow: auto; }
        nav ul { list-style: none; padding-left: 14px; }
        nav > ul { padding-left: 0; }
        nav a { color: #333; text-decoration: none; }
        nav a:hover { text-decoration: underline; }
        main { flex: 1; min-width: 0; }
        section { background: white; border-radius: 8px; padding: 16px; margin-bottom: 20px; }
        h1 { font-size: 1.6em; margin-bottom: 8px; }
        h2 { font-size: 1.2em; margin-bottom: 8px; }
        .stats { display: flex; gap: 24px; flex-wrap: wrap; color: #555; }
        .stats strong { color: #222; }
        table { border-collapse: collapse; width: 100%; font-size: 0.9em; }
        th, td { border-bottom: 1px solid #e0e0e0; padding: 4px 8px; text-align: left; }
        th { background: #fafafa; }
        td.num { text-align: right; font-variant-numeric: tabular-nums; }
        .muted { color: #888; }
    </style>
</head>
<body>
<div class="container">
    <nav>
        {{template "tree" .Roots}}
    </nav>
    <main>
        <section>
            <h1>{{.Title}}</h1>
            <div class="stats">
                <span>Points: <strong>{{formatInt .Stats.Points}}</strong></span>
                <span>Coverpoints: <strong>{{formatInt .Stats.Leaves}}</strong></span>
                <span>Hits: <strong>{{formatInt .Stats.Hits}} / {{formatInt .Stats.Target}}</strong> ({{formatRatio .Stats.HitRatio}})</span>
                <span>Full buckets: <strong>{{formatInt .Stats.FullBuckets}} / {{formatInt .Stats.TargetBuckets}}</strong> ({{formatRatio .Stats.FullRatio}})</span>
                {{with formatTime .Generated}}<span class="muted">Generated {{.}}</span>{{end}}
            </div>
        </section>
        <section>
            <h2>Summary</h2>
            <table>
                <thead>
                    <tr><th>Path</th><th>Description</th><th>Target</th><th>Hits</th><th>Hit %</th><th>Buckets</th><th>Hit buckets</th><th>Full buckets</th><th>Full %</th></tr>
                </thead>
                <tbody>
                {{range .Summary}}
                    <tr id="{{anchor .Key}}">
                        <td>{{.Path}}</td>
                        <td>{{.Description}}</td>
                        <td class="num">{{formatInt .Target}}</td>
                        <td class="num">{{formatInt .Hits}}</td>
                        <td class="num" style="{{shade .HitRatio}}">{{formatRatio .HitRatio}}</td>
                        <td class="num">{{formatInt .TargetBuckets}}</td>
                        <td class="num">{{formatInt .HitBuckets}}</td>
                        <td class="num">{{formatInt .FullBuckets}}</td>
                        <td class="num" style="{{shade .BucketsFullRatio}}">{{formatRatio .BucketsFullRatio}}</td>
                    </tr>
                {{end}}
                </tbody>
            </table>
        </section>
        {{range .Leaves}}
        <section id="{{anchor .Key}}-buckets">
            <h2>{{.Path}}</h2>
            {{$labels := .Labels}}
            <table>
                <thead>
                    <tr><th>Bucket</th>{{range $labels}}<th>{{.}}</th>{{end}}<th>Goal</th><th>Target</th><th>Hits</th><th>Hit %</th></tr>
                </thead>
                <tbody>
                {{range .Table.Rows}}
                    {{$row := .}}
                    <tr>
                        <td class="num">{{.Bucket}}</td>
                        {{range $labels}}<td>{{label $row.Labels .}}</td>{{end}}
                        <td title="{{.GoalDescription}}">{{.GoalName}}</td>
                        <td class="num">{{formatInt .Target}}</td>
                        <td class="num">{{formatInt .Hits}}</td>
                        <td class="num" style="{{shade .HitRatio}}">{{formatRatio .HitRatio}}</td>
                    </tr>
                {{end}}
                </tbody>
            </table>
        </section>
        {{end}}
    </main>
</div>
</body>
</html>
{{define "tree"}}
<ul>
{{range .}}
    <li><a href="#{{anchor .Key}}">{{.Title}}</a>{{if .Children}}{{template "tree" .Children}}{{end}}</li>
{{end}}
</ul>
{{end}}
`
