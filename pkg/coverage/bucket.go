package coverage

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyAxis is returned when an axis has no values to decode against
	ErrEmptyAxis = errors.New("axis has no values")

	// ErrAxisValueRange is returned when an axis refers past the point's value pool
	ErrAxisValueRange = errors.New("axis value outside point range")
)

// DecodeBucket recovers the per-axis value labels of a bucket. The bucket
// space of a point is the cartesian product of its axes flattened as a
// mixed-radix number whose least significant digit is the last axis.
//
// axes and axisValues must be the point's own windows, i.e. the rows from
// AxisStart..AxisEnd and AxisValueStart..AxisValueEnd. Labels are returned in
// axis order.
func DecodeBucket(bucket int, p Point, axes []Axis, axisValues []AxisValue) ([]string, error) {
	labels := make([]string, len(axes))
	offset := bucket - p.BucketStart
	for i := len(axes) - 1; i >= 0; i-- {
		axis := axes[i]
		size := axis.Size()
		if size <= 0 {
			return nil, fmt.Errorf("decode bucket %d axis %q: %w", bucket, axis.Name, ErrEmptyAxis)
		}
		idx := axis.ValueStart - p.AxisValueStart + offset%size
		if idx < 0 || idx >= len(axisValues) {
			return nil, fmt.Errorf("decode bucket %d axis %q index %d: %w", bucket, axis.Name, idx, ErrAxisValueRange)
		}
		labels[i] = axisValues[idx].Value
		offset /= size
	}
	return labels, nil
}

// AxisLabels returns the value labels belonging to one axis of a point
func AxisLabels(p Point, axis Axis, axisValues []AxisValue) []string {
	lo := axis.ValueStart - p.AxisValueStart
	hi := axis.ValueEnd - p.AxisValueStart
	lo, hi = Window(len(axisValues), lo, hi)
	out := make([]string, 0, hi-lo)
	for _, av := range axisValues[lo:hi] {
		out = append(out, av.Value)
	}
	return out
}
