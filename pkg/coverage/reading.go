// Package coverage defines the functional coverage data model and the
// Reading/Reader abstraction shared by every storage backend.
//
// A Reading pairs a coverage definition (points, axes, axis values, goals and
// bucket goals) with one record of hits against it (point hits and bucket
// hits). Every table is exposed as a lazy sequence over a half-open row window.
package coverage

import (
	"errors"
	"iter"
)

// All is passed as an end offset to iterate to the end of a table
const All = -1

var (
	// ErrRecordRange is returned when a record index does not exist
	ErrRecordRange = errors.New("record index out of range")

	// ErrSHAMismatch is returned when merging readings of different coverage
	ErrSHAMismatch = errors.New("readings have different definition or record hashes")
)

// Reading gives uniform access to one coverage definition and one record of
// hits against it, independent of the storage backend. Each call to an
// iterator method returns a fresh sequence starting at start.
type Reading interface {
	DefSHA() string
	RecSHA() string

	// Points and PointHits shift both start and end (when not All) by depth
	Points(start, end, depth int) iter.Seq[Point]
	PointHits(start, end, depth int) iter.Seq[PointHit]

	Axes(start, end int) iter.Seq[Axis]
	AxisValues(start, end int) iter.Seq[AxisValue]
	Goals(start, end int) iter.Seq[Goal]
	BucketGoals(start, end int) iter.Seq[BucketGoal]
	BucketHits(start, end int) iter.Seq[BucketHit]
}

// Reader produces readings from a backend
type Reader interface {
	// Read returns the reading for a record index
	Read(id int) (Reading, error)
	// ReadAll yields every reading in record order
	ReadAll() iter.Seq2[int, Reading]
}

// Writer stores a reading in a backend and returns its record reference
type Writer interface {
	Write(r Reading) (int, error)
}

// Window resolves a half-open [start, end) row window against a table of n
// rows. A start outside [0, n] gives an empty window; an end past the table
// stops at the table end.
func Window(n, start, end int) (lo, hi int) {
	if start < 0 || start > n {
		return 0, 0
	}
	if end == All || end > n {
		end = n
	}
	if end < start {
		return start, start
	}
	return start, end
}

// DepthWindow applies a depth offset to a point window
func DepthWindow(start, end, depth int) (int, int) {
	if end != All {
		end += depth
	}
	return start + depth, end
}

// Slice yields rows[start:end] resolved through Window
func Slice[T any](rows []T, start, end int) iter.Seq[T] {
	lo, hi := Window(len(rows), start, end)
	return func(yield func(T) bool) {
		for i := lo; i < hi; i++ {
			if !yield(rows[i]) {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice
func Collect[T any](seq iter.Seq[T]) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}

// Zip pairs two sequences positionally. Every element of a is yielded; its
// partner is nil once b is exhausted.
func Zip[A, B any](a iter.Seq[A], b iter.Seq[B]) iter.Seq2[A, *B] {
	return func(yield func(A, *B) bool) {
		next, stop := iter.Pull(b)
		defer stop()
		for va := range a {
			vb, ok := next()
			if !ok {
				if !yield(va, nil) {
					return
				}
				continue
			}
			if !yield(va, &vb) {
				return
			}
		}
	}
}
