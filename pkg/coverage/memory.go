package coverage

import (
	"fmt"
	"iter"
)

// MemoryReading stores coverage tables directly in slices. Importers build
// one up row by row; it is also the decoded form of the SQLite backend.
type MemoryReading struct {
	DefinitionSHA string
	RecordSHA     string

	PointRows      []Point
	AxisRows       []Axis
	AxisValueRows  []AxisValue
	GoalRows       []Goal
	BucketGoalRows []BucketGoal
	PointHitRows   []PointHit
	BucketHitRows  []BucketHit
}

func (m *MemoryReading) DefSHA() string { return m.DefinitionSHA }
func (m *MemoryReading) RecSHA() string { return m.RecordSHA }

func (m *MemoryReading) Points(start, end, depth int) iter.Seq[Point] {
	start, end = DepthWindow(start, end, depth)
	return Slice(m.PointRows, start, end)
}

func (m *MemoryReading) PointHits(start, end, depth int) iter.Seq[PointHit] {
	start, end = DepthWindow(start, end, depth)
	return Slice(m.PointHitRows, start, end)
}

func (m *MemoryReading) Axes(start, end int) iter.Seq[Axis] {
	return Slice(m.AxisRows, start, end)
}

func (m *MemoryReading) AxisValues(start, end int) iter.Seq[AxisValue] {
	return Slice(m.AxisValueRows, start, end)
}

func (m *MemoryReading) Goals(start, end int) iter.Seq[Goal] {
	return Slice(m.GoalRows, start, end)
}

func (m *MemoryReading) BucketGoals(start, end int) iter.Seq[BucketGoal] {
	return Slice(m.BucketGoalRows, start, end)
}

func (m *MemoryReading) BucketHits(start, end int) iter.Seq[BucketHit] {
	return Slice(m.BucketHitRows, start, end)
}

// Snapshot copies every table of a reading into a MemoryReading
func Snapshot(r Reading) *MemoryReading {
	return &MemoryReading{
		DefinitionSHA:  r.DefSHA(),
		RecordSHA:      r.RecSHA(),
		PointRows:      Collect(r.Points(0, All, 0)),
		AxisRows:       Collect(r.Axes(0, All)),
		AxisValueRows:  Collect(r.AxisValues(0, All)),
		GoalRows:       Collect(r.Goals(0, All)),
		BucketGoalRows: Collect(r.BucketGoals(0, All)),
		PointHitRows:   Collect(r.PointHits(0, All, 0)),
		BucketHitRows:  Collect(r.BucketHits(0, All)),
	}
}

// SliceReader serves a fixed list of readings
type SliceReader []Reading

func (s SliceReader) Read(id int) (Reading, error) {
	if id < 0 || id >= len(s) {
		return nil, fmt.Errorf("read record %d of %d: %w", id, len(s), ErrRecordRange)
	}
	return s[id], nil
}

func (s SliceReader) ReadAll() iter.Seq2[int, Reading] {
	return func(yield func(int, Reading) bool) {
		for i, r := range s {
			if !yield(i, r) {
				return
			}
		}
	}
}
