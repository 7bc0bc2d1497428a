package coverage

// Table names used by every reading backend
const (
	TablePoint      = "point"
	TableAxis       = "axis"
	TableAxisValue  = "axis_value"
	TableGoal       = "goal"
	TableBucketGoal = "bucket_goal"
	TablePointHit   = "point_hit"
	TableBucketHit  = "bucket_hit"
)

// DefinitionTables are stored once per coverage definition
var DefinitionTables = []string{TablePoint, TableAxis, TableAxisValue, TableGoal, TableBucketGoal}

// RecordTables are stored once per recorded run against a definition
var RecordTables = []string{TablePointHit, TableBucketHit}

// Point is a coverpoint or covergroup in the coverage hierarchy. The
// *_start/*_end pairs are half-open offset ranges into the related tables.
type Point struct {
	Start          int    `json:"start"`
	Depth          int    `json:"depth"`
	End            int    `json:"end"`
	AxisStart      int    `json:"axis_start"`
	AxisEnd        int    `json:"axis_end"`
	AxisValueStart int    `json:"axis_value_start"`
	AxisValueEnd   int    `json:"axis_value_end"`
	GoalStart      int    `json:"goal_start"`
	GoalEnd        int    `json:"goal_end"`
	BucketStart    int    `json:"bucket_start"`
	BucketEnd      int    `json:"bucket_end"`
	Target         int    `json:"target"`
	TargetBuckets  int    `json:"target_buckets"`
	Name           string `json:"name"`
	Description    string `json:"description"`
}

// Axis is one dimension of a point's bucket space
type Axis struct {
	Start       int    `json:"start"`
	ValueStart  int    `json:"value_start"`
	ValueEnd    int    `json:"value_end"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Size returns the number of values on the axis
func (a Axis) Size() int {
	return a.ValueEnd - a.ValueStart
}

// AxisValue is a single label in the flat axis value pool
type AxisValue struct {
	Start int    `json:"start"`
	Value string `json:"value"`
}

// Goal is a named target that buckets are assigned to
type Goal struct {
	Start       int    `json:"start"`
	Target      int    `json:"target"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BucketGoal maps a bucket offset to the goal it belongs to
type BucketGoal struct {
	Start int `json:"start"`
	Goal  int `json:"goal"`
}

// PointHit holds the recorded statistics for the point at the same position
type PointHit struct {
	Start       int `json:"start"`
	Depth       int `json:"depth"`
	Hits        int `json:"hits"`
	HitBuckets  int `json:"hit_buckets"`
	FullBuckets int `json:"full_buckets"`
}

// BucketHit is the hit count of one bucket
type BucketHit struct {
	Start int `json:"start"`
	Hits  int `json:"hits"`
}
