package coverage

import (
	"fmt"
	"iter"
)

// MergeReading accumulates the bucket hits of several readings that share a
// definition and record hash. Point hits are recomputed from the merged
// bucket hits.
type MergeReading struct {
	master        Reading
	bucketHits    []int
	bucketTargets []int
}

// NewMergeReading seeds a merge from master and folds in others
func NewMergeReading(master Reading, others ...Reading) (*MergeReading, error) {
	m := &MergeReading{master: master}

	for bh := range master.BucketHits(0, All) {
		m.bucketHits = append(m.bucketHits, bh.Hits)
	}

	var goalTargets []int
	for g := range master.Goals(0, All) {
		goalTargets = append(goalTargets, g.Target)
	}
	for bg := range master.BucketGoals(0, All) {
		target := 0
		if bg.Goal >= 0 && bg.Goal < len(goalTargets) {
			target = goalTargets[bg.Goal]
		}
		m.bucketTargets = append(m.bucketTargets, target)
	}

	if err := m.Merge(others...); err != nil {
		return nil, err
	}
	return m, nil
}

// Merge adds the bucket hits of more readings
func (m *MergeReading) Merge(readings ...Reading) error {
	defSHA, recSHA := m.DefSHA(), m.RecSHA()
	for i, r := range readings {
		if r.DefSHA() != defSHA || r.RecSHA() != recSHA {
			return fmt.Errorf("merge reading %d (def %q rec %q into def %q rec %q): %w",
				i, r.DefSHA(), r.RecSHA(), defSHA, recSHA, ErrSHAMismatch)
		}
		for bh := range r.BucketHits(0, All) {
			if bh.Start < 0 || bh.Start >= len(m.bucketHits) {
				return fmt.Errorf("merge reading %d: bucket %d outside definition of %d buckets",
					i, bh.Start, len(m.bucketHits))
			}
			m.bucketHits[bh.Start] += bh.Hits
		}
	}
	return nil
}

func (m *MergeReading) DefSHA() string { return m.master.DefSHA() }
func (m *MergeReading) RecSHA() string { return m.master.RecSHA() }

func (m *MergeReading) Points(start, end, depth int) iter.Seq[Point] {
	return m.master.Points(start, end, depth)
}

func (m *MergeReading) Axes(start, end int) iter.Seq[Axis] {
	return m.master.Axes(start, end)
}

func (m *MergeReading) AxisValues(start, end int) iter.Seq[AxisValue] {
	return m.master.AxisValues(start, end)
}

func (m *MergeReading) Goals(start, end int) iter.Seq[Goal] {
	return m.master.Goals(start, end)
}

func (m *MergeReading) BucketGoals(start, end int) iter.Seq[BucketGoal] {
	return m.master.BucketGoals(start, end)
}

func (m *MergeReading) BucketHits(start, end int) iter.Seq[BucketHit] {
	lo, hi := Window(len(m.bucketHits), start, end)
	return func(yield func(BucketHit) bool) {
		for i := lo; i < hi; i++ {
			if !yield(BucketHit{Start: i, Hits: m.bucketHits[i]}) {
				return
			}
		}
	}
}

// PointHits derives point statistics from the merged bucket hits. Buckets
// with a non-positive target do not count; hits are clamped to the target.
func (m *MergeReading) PointHits(start, end, depth int) iter.Seq[PointHit] {
	return func(yield func(PointHit) bool) {
		for p := range m.Points(start, end, depth) {
			ph := PointHit{Start: p.Start, Depth: p.Depth}
			for bh := range m.BucketHits(p.BucketStart, p.BucketEnd) {
				target := 0
				if bh.Start < len(m.bucketTargets) {
					target = m.bucketTargets[bh.Start]
				}
				if target <= 0 || bh.Hits <= 0 {
					continue
				}
				hits := min(bh.Hits, target)
				ph.HitBuckets++
				if hits == target {
					ph.FullBuckets++
				}
				ph.Hits += hits
			}
			if !yield(ph) {
				return
			}
		}
	}
}

// MergeBySHA merges readings that share a definition and record hash. The
// result holds one merge per hash pair in order of first appearance.
func MergeBySHA(readings []Reading) ([]*MergeReading, error) {
	type shas struct{ def, rec string }
	index := make(map[shas]int)
	var out []*MergeReading
	for i, r := range readings {
		k := shas{r.DefSHA(), r.RecSHA()}
		if at, ok := index[k]; ok {
			if err := out[at].Merge(r); err != nil {
				return nil, fmt.Errorf("merge reading %d: %w", i, err)
			}
			continue
		}
		m, err := NewMergeReading(r)
		if err != nil {
			return nil, fmt.Errorf("merge reading %d: %w", i, err)
		}
		index[k] = len(out)
		out = append(out, m)
	}
	return out, nil
}
