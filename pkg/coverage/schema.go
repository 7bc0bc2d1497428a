package coverage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Schema maps a table name to its ordered column names. Raw rows are
// positional, so the column order must match the value order of every row.
type Schema map[string][]string

// DefaultTables returns the canonical schema written by this module
func DefaultTables() Schema {
	return Schema{
		TablePoint: {
			"start", "depth", "end",
			"axis_start", "axis_end",
			"axis_value_start", "axis_value_end",
			"goal_start", "goal_end",
			"bucket_start", "bucket_end",
			"target", "target_buckets",
			"name", "description",
		},
		TableAxis:       {"start", "value_start", "value_end", "name", "description"},
		TableAxisValue:  {"start", "value"},
		TableGoal:       {"start", "target", "name", "description"},
		TableBucketGoal: {"start", "goal"},
		TablePointHit:   {"start", "depth", "hits", "hit_buckets", "full_buckets"},
		TableBucketHit:  {"start", "hits"},
	}
}

// Columns returns the columns for a table. An unknown table is a programming
// error and panics.
func (s Schema) Columns(table string) []string {
	cols, ok := s[table]
	if !ok {
		panic(fmt.Sprintf("coverage: table %q not in schema", table))
	}
	return cols
}

// Row is a decoded table row keyed by column name
type Row map[string]any

// DecodeRow zips column names with raw values by position. Extra values or
// extra columns are dropped.
func DecodeRow(columns []string, values []any) Row {
	n := min(len(columns), len(values))
	row := make(Row, n)
	for i := 0; i < n; i++ {
		row[columns[i]] = values[i]
	}
	return row
}

// Int returns the named column as an int. Missing or non-numeric values
// decode as zero.
func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(math.Round(v))
	case float32:
		return int(math.Round(float64(v)))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(math.Round(f))
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// String returns the named column as a string
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// PointFromRow decodes a point row
func PointFromRow(r Row) Point {
	return Point{
		Start:          r.Int("start"),
		Depth:          r.Int("depth"),
		End:            r.Int("end"),
		AxisStart:      r.Int("axis_start"),
		AxisEnd:        r.Int("axis_end"),
		AxisValueStart: r.Int("axis_value_start"),
		AxisValueEnd:   r.Int("axis_value_end"),
		GoalStart:      r.Int("goal_start"),
		GoalEnd:        r.Int("goal_end"),
		BucketStart:    r.Int("bucket_start"),
		BucketEnd:      r.Int("bucket_end"),
		Target:         r.Int("target"),
		TargetBuckets:  r.Int("target_buckets"),
		Name:           r.String("name"),
		Description:    r.String("description"),
	}
}

func AxisFromRow(r Row) Axis {
	return Axis{
		Start:       r.Int("start"),
		ValueStart:  r.Int("value_start"),
		ValueEnd:    r.Int("value_end"),
		Name:        r.String("name"),
		Description: r.String("description"),
	}
}

func AxisValueFromRow(r Row) AxisValue {
	return AxisValue{Start: r.Int("start"), Value: r.String("value")}
}

func GoalFromRow(r Row) Goal {
	return Goal{
		Start:       r.Int("start"),
		Target:      r.Int("target"),
		Name:        r.String("name"),
		Description: r.String("description"),
	}
}

func BucketGoalFromRow(r Row) BucketGoal {
	return BucketGoal{Start: r.Int("start"), Goal: r.Int("goal")}
}

func PointHitFromRow(r Row) PointHit {
	return PointHit{
		Start:       r.Int("start"),
		Depth:       r.Int("depth"),
		Hits:        r.Int("hits"),
		HitBuckets:  r.Int("hit_buckets"),
		FullBuckets: r.Int("full_buckets"),
	}
}

func BucketHitFromRow(r Row) BucketHit {
	return BucketHit{Start: r.Int("start"), Hits: r.Int("hits")}
}

// Values encodes a row type back into positional values following the
// canonical column order.
func Values(v any) []any {
	switch t := v.(type) {
	case Point:
		return []any{
			t.Start, t.Depth, t.End,
			t.AxisStart, t.AxisEnd,
			t.AxisValueStart, t.AxisValueEnd,
			t.GoalStart, t.GoalEnd,
			t.BucketStart, t.BucketEnd,
			t.Target, t.TargetBuckets,
			t.Name, t.Description,
		}
	case Axis:
		return []any{t.Start, t.ValueStart, t.ValueEnd, t.Name, t.Description}
	case AxisValue:
		return []any{t.Start, t.Value}
	case Goal:
		return []any{t.Start, t.Target, t.Name, t.Description}
	case BucketGoal:
		return []any{t.Start, t.Goal}
	case PointHit:
		return []any{t.Start, t.Depth, t.Hits, t.HitBuckets, t.FullBuckets}
	case BucketHit:
		return []any{t.Start, t.Hits}
	default:
		panic(fmt.Sprintf("coverage: no column encoding for %T", v))
	}
}

// ToRow encodes a row type as a Row keyed by its canonical column names
func ToRow(table string, v any) Row {
	return DecodeRow(DefaultTables().Columns(table), Values(v))
}

// Values returns the row's values in the given column order. Columns absent
// from the row encode as nil.
func (r Row) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, col := range columns {
		out[i] = r[col]
	}
	return out
}
