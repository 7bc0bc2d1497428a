// Package coveragetest provides small coverage readings for tests.
package coveragetest

import "github.com/jupierce/coverage-viewer/pkg/coverage"

// Pets returns a reading with one covergroup "top" holding two coverpoints:
//
//	top (depth 0)
//	├── dogs: size{small,large} x colour{red,green,blue}, last bucket ignored
//	└── cats: mood{happy,grumpy}, grumpy is illegal
//
// Bucket hits are dogs [1,0,2,1,0,3] and cats [4,0].
func Pets() *coverage.MemoryReading {
	return &coverage.MemoryReading{
		DefinitionSHA: "def-pets",
		RecordSHA:     "rec-pets",
		PointRows: []coverage.Point{
			{Start: 0, Depth: 0, End: 2, AxisStart: 0, AxisEnd: 3, AxisValueStart: 0, AxisValueEnd: 7,
				GoalStart: 0, GoalEnd: 4, BucketStart: 0, BucketEnd: 8, Target: 15, TargetBuckets: 6,
				Name: "top", Description: "All the pets"},
			{Start: 0, Depth: 1, End: 1, AxisStart: 0, AxisEnd: 2, AxisValueStart: 0, AxisValueEnd: 5,
				GoalStart: 0, GoalEnd: 2, BucketStart: 0, BucketEnd: 6, Target: 5, TargetBuckets: 5,
				Name: "dogs", Description: "Dog sizes and colours"},
			{Start: 1, Depth: 1, End: 2, AxisStart: 2, AxisEnd: 3, AxisValueStart: 5, AxisValueEnd: 7,
				GoalStart: 2, GoalEnd: 4, BucketStart: 6, BucketEnd: 8, Target: 10, TargetBuckets: 1,
				Name: "cats", Description: "Cat moods"},
		},
		AxisRows: []coverage.Axis{
			{Start: 0, ValueStart: 0, ValueEnd: 2, Name: "size", Description: "Dog size"},
			{Start: 1, ValueStart: 2, ValueEnd: 5, Name: "colour", Description: "Dog colour"},
			{Start: 2, ValueStart: 5, ValueEnd: 7, Name: "mood", Description: "Cat mood"},
		},
		AxisValueRows: []coverage.AxisValue{
			{Start: 0, Value: "small"},
			{Start: 1, Value: "large"},
			{Start: 2, Value: "red"},
			{Start: 3, Value: "green"},
			{Start: 4, Value: "blue"},
			{Start: 5, Value: "happy"},
			{Start: 6, Value: "grumpy"},
		},
		GoalRows: []coverage.Goal{
			{Start: 0, Target: 1, Name: "DEFAULT", Description: "Default goal"},
			{Start: 1, Target: 0, Name: "IGNORE", Description: "Not interesting"},
			{Start: 2, Target: 10, Name: "DEFAULT", Description: "Default goal"},
			{Start: 3, Target: -1, Name: "ILLEGAL", Description: "Must never happen"},
		},
		BucketGoalRows: []coverage.BucketGoal{
			{Start: 0, Goal: 0},
			{Start: 1, Goal: 0},
			{Start: 2, Goal: 0},
			{Start: 3, Goal: 0},
			{Start: 4, Goal: 0},
			{Start: 5, Goal: 1},
			{Start: 6, Goal: 2},
			{Start: 7, Goal: 3},
		},
		PointHitRows: []coverage.PointHit{
			{Start: 0, Depth: 0, Hits: 7, HitBuckets: 4, FullBuckets: 3},
			{Start: 0, Depth: 1, Hits: 3, HitBuckets: 3, FullBuckets: 3},
			{Start: 1, Depth: 1, Hits: 4, HitBuckets: 1, FullBuckets: 0},
		},
		BucketHitRows: []coverage.BucketHit{
			{Start: 0, Hits: 1},
			{Start: 1, Hits: 0},
			{Start: 2, Hits: 2},
			{Start: 3, Hits: 1},
			{Start: 4, Hits: 0},
			{Start: 5, Hits: 3},
			{Start: 6, Hits: 4},
			{Start: 7, Hits: 0},
		},
	}
}

// Flat returns a reading with the given point names, each at the given
// depth, with zeroed statistics. Depths must describe a pre-order walk.
func Flat(sha string, names []string, depths []int) *coverage.MemoryReading {
	r := &coverage.MemoryReading{DefinitionSHA: sha, RecordSHA: sha}
	for i, name := range names {
		r.PointRows = append(r.PointRows, coverage.Point{Start: i, End: i + 1, Depth: depths[i], Name: name})
		r.PointHitRows = append(r.PointHitRows, coverage.PointHit{Start: i, Depth: depths[i]})
	}
	return r
}
