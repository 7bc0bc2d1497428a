// Package goprofile turns Go coverage profiles into coverage readings.
//
// The reading has one covergroup for the module, one per package directory
// and one coverpoint per file. Each file has a single "block" axis with a
// bucket per profile block, all sharing one goal of a single hit.
package goprofile

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"

	"golang.org/x/tools/cover"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
)

// Options name the reading built from a profile
type Options struct {
	// Name is the title of the top-level group. Defaults to "coverage".
	Name string
	// RecordSHA identifies the test run. Profiles merge only when their
	// definition and record hashes match.
	RecordSHA string
}

// ParseFile reads a coverprofile from disk
func ParseFile(fileName string, opts Options) (*coverage.MemoryReading, error) {
	profiles, err := cover.ParseProfiles(fileName)
	if err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return FromProfiles(profiles, opts), nil
}

// Parse reads a coverprofile
func Parse(r io.Reader, opts Options) (*coverage.MemoryReading, error) {
	profiles, err := cover.ParseProfilesFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return FromProfiles(profiles, opts), nil
}

type pkg struct {
	dir   string
	files []*cover.Profile
}

// FromProfiles builds a reading from parsed profiles
func FromProfiles(profiles []*cover.Profile, opts Options) *coverage.MemoryReading {
	name := opts.Name
	if name == "" {
		name = "coverage"
	}

	byDir := make(map[string]*pkg)
	var pkgs []*pkg
	for _, p := range profiles {
		dir := path.Dir(p.FileName)
		g, ok := byDir[dir]
		if !ok {
			g = &pkg{dir: dir}
			byDir[dir] = g
			pkgs = append(pkgs, g)
		}
		g.files = append(g.files, p)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].dir < pkgs[j].dir })
	for _, g := range pkgs {
		sort.Slice(g.files, func(i, j int) bool { return g.files[i].FileName < g.files[j].FileName })
	}

	b := &builder{reading: &coverage.MemoryReading{RecordSHA: opts.RecordSHA}}
	b.reading.GoalRows = []coverage.Goal{{Start: 0, Target: 1, Name: "DEFAULT", Description: "Block runs at least once"}}

	root := b.open(name, fmt.Sprintf("%d packages", len(pkgs)), 0)
	for _, g := range pkgs {
		group := b.open(g.dir, fmt.Sprintf("%d files", len(g.files)), 1)
		for _, f := range g.files {
			b.file(f, 2)
		}
		b.close(group)
	}
	b.close(root)

	b.reading.DefinitionSHA = definitionHash(pkgs)
	return b.reading
}

// builder appends points in pre-order. Groups are written on open and their
// windows filled in on close. A point's row is Start+Depth: every point
// takes its slot when it closes, so End-Start is the size of its subtree.
type builder struct {
	reading *coverage.MemoryReading
	points  int
	leaves  int
	values  int
}

type span struct {
	row       int
	leafStart int
	valStart  int
}

func (b *builder) open(name, description string, depth int) span {
	r := b.reading
	r.PointRows = append(r.PointRows, coverage.Point{
		Start:       b.points,
		Depth:       depth,
		Name:        name,
		Description: description,
	})
	r.PointHitRows = append(r.PointHitRows, coverage.PointHit{Start: b.points, Depth: depth})
	return span{row: len(r.PointRows) - 1, leafStart: b.leaves, valStart: b.values}
}

func (b *builder) close(s span) {
	r := b.reading
	p := &r.PointRows[s.row]
	b.points++
	p.End = b.points
	p.AxisStart, p.AxisEnd = s.leafStart, b.leaves
	p.AxisValueStart, p.AxisValueEnd = s.valStart, b.values
	p.GoalStart, p.GoalEnd = 0, 1
	p.BucketStart, p.BucketEnd = s.valStart, b.values

	ph := &r.PointHitRows[s.row]
	for _, child := range r.PointRows[s.row+1:] {
		if child.Depth != p.Depth+1 || child.Start < p.Start || child.End > p.End {
			continue
		}
		p.Target += child.Target
		p.TargetBuckets += child.TargetBuckets
	}
	for _, h := range r.BucketHitRows[s.valStart:b.values] {
		if h.Hits > 0 {
			ph.Hits++
		}
	}
	ph.HitBuckets = ph.Hits
	ph.FullBuckets = ph.Hits
}

func (b *builder) file(f *cover.Profile, depth int) {
	r := b.reading
	s := b.open(path.Base(f.FileName), f.FileName, depth)

	stmts := 0
	for i, block := range f.Blocks {
		r.AxisValueRows = append(r.AxisValueRows, coverage.AxisValue{
			Start: b.values + i,
			Value: fmt.Sprintf("%d:%d-%d:%d", block.StartLine, block.StartCol, block.EndLine, block.EndCol),
		})
		r.BucketGoalRows = append(r.BucketGoalRows, coverage.BucketGoal{Start: b.values + i, Goal: 0})
		r.BucketHitRows = append(r.BucketHitRows, coverage.BucketHit{Start: b.values + i, Hits: block.Count})
		stmts += block.NumStmt
	}
	r.AxisRows = append(r.AxisRows, coverage.Axis{
		Start:       b.leaves,
		ValueStart:  b.values,
		ValueEnd:    b.values + len(f.Blocks),
		Name:        "block",
		Description: fmt.Sprintf("%d statements", stmts),
	})

	b.leaves++
	b.values += len(f.Blocks)

	p := &r.PointRows[s.row]
	p.Target = len(f.Blocks)
	p.TargetBuckets = len(f.Blocks)
	b.close(s)
}

func definitionHash(pkgs []*pkg) string {
	h := md5.New()
	for _, g := range pkgs {
		for _, f := range g.files {
			io.WriteString(h, f.FileName)
			for _, block := range f.Blocks {
				fmt.Fprintf(h, " %d.%d,%d.%d %d", block.StartLine, block.StartCol, block.EndLine, block.EndCol, block.NumStmt)
			}
			io.WriteString(h, "\n")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
