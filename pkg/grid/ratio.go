// Package grid projects coverage tree nodes into tables: per-bucket point
// grids, subtree summaries and two-axis pivots, along with the ratio
// formatting, classification, sorting and shading those tables use.
package grid

import (
	"fmt"
	"math"
	"strconv"
)

// Ratio is hits over target with IEEE semantics. A zero target gives NaN
// (don't care), an unhit negative target gives -0 and a hit negative target
// gives a negative ratio.
type Ratio float64

// NewRatio divides hits by target
func NewRatio(hits, target int) Ratio {
	return Ratio(float64(hits) / float64(target))
}

// String formats the ratio for display
func (r Ratio) String() string {
	return FormatRatio(float64(r))
}

// MarshalJSON keeps NaN, infinities and -0 distinguishable on the wire
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON reverses MarshalJSON
func (r *Ratio) UnmarshalJSON(b []byte) error {
	s := string(b)
	if n := len(s); n >= 2 && s[0] == '"' && s[n-1] == '"' {
		s = s[1 : n-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse ratio %q: %w", s, err)
	}
	*r = Ratio(f)
	return nil
}

// IsNegZero reports whether f is negative zero
func IsNegZero(f float64) bool {
	return f == 0 && math.Signbit(f)
}

// FormatRatio renders a ratio as a percentage clamped to 100%. NaN and -0
// render as "-", negative ratios as "!!!".
func FormatRatio(f float64) string {
	switch {
	case math.IsNaN(f) || IsNegZero(f):
		return "-"
	case f < 0:
		return "!!!"
	}
	return strconv.FormatFloat(math.Min(f, 1)*100, 'f', 1, 64) + "%"
}

// Class buckets a target/hits pair for filtering
type Class string

const (
	ClassFull    Class = "full"
	ClassPartial Class = "partial"
	ClassEmpty   Class = "empty"
	ClassIllegal Class = "illegal"
	ClassIgnore  Class = "ignore"
)

// Classes lists every class in display order
var Classes = []Class{ClassFull, ClassPartial, ClassEmpty, ClassIllegal, ClassIgnore}

// ParseClass validates a class name
func ParseClass(s string) (Class, error) {
	for _, c := range Classes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid class: %s (valid: full, partial, empty, illegal, ignore)", s)
}

// Classify returns the class of a bucket with the given target and hits
func Classify(target, hits int) Class {
	switch {
	case target < 0:
		return ClassIllegal
	case target == 0:
		return ClassIgnore
	case hits >= target:
		return ClassFull
	case hits > 0:
		return ClassPartial
	default:
		return ClassEmpty
	}
}

// NumCompare orders ratios with NaN first and -0 before +0
func NumCompare(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	aNeg, bNeg := IsNegZero(a), IsNegZero(b)
	switch {
	case aNeg == bNeg:
		return 0
	case aNeg:
		return -1
	default:
		return 1
	}
}
