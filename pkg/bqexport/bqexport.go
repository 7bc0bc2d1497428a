// Package bqexport loads coverage trees into BigQuery.
//
// Two tables are kept in the target dataset:
//
//	coverage_points:  one row per coverage tree node with its summary counts
//	coverage_buckets: one row per leaf bucket with its axis labels and goal
//
// Both are partitioned on ingestion_time so repeated ingests of the same
// record can be told apart.
package bqexport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/log"
	"github.com/jupierce/coverage-viewer/pkg/tree"
)

// Table names
const (
	PointsTable  = "coverage_points"
	BucketsTable = "coverage_buckets"
)

// BatchSize is the number of rows sent per streaming insert
const BatchSize = 500

// PointRow is one coverage tree node
type PointRow struct {
	IngestionTime time.Time            `bigquery:"ingestion_time"`
	CollectionID  string               `bigquery:"collection_id"`
	DefinitionSHA string               `bigquery:"definition_sha"`
	RecordSHA     string               `bigquery:"record_sha"`
	NodeKey       string               `bigquery:"node_key"`
	Path          string               `bigquery:"path"`
	Depth         int                  `bigquery:"depth"`
	Name          string               `bigquery:"name"`
	Description   string               `bigquery:"description"`
	Target        int                  `bigquery:"target"`
	Hits          int                  `bigquery:"hits"`
	HitRatio      bigquery.NullFloat64 `bigquery:"hit_ratio"`
	TargetBuckets int                  `bigquery:"target_buckets"`
	HitBuckets    int                  `bigquery:"hit_buckets"`
	FullBuckets   int                  `bigquery:"full_buckets"`
}

// Label is one axis value of a bucket
type Label struct {
	Axis  string `bigquery:"axis"`
	Value string `bigquery:"value"`
}

// BucketRow is one bucket of a leaf coverpoint
type BucketRow struct {
	IngestionTime time.Time `bigquery:"ingestion_time"`
	CollectionID  string    `bigquery:"collection_id"`
	DefinitionSHA string    `bigquery:"definition_sha"`
	RecordSHA     string    `bigquery:"record_sha"`
	NodeKey       string    `bigquery:"node_key"`
	Bucket        int       `bigquery:"bucket"`
	Labels        []Label   `bigquery:"labels"`
	Goal          string    `bigquery:"goal"`
	Target        int       `bigquery:"target"`
	Hits          int       `bigquery:"hits"`
	Class         string    `bigquery:"class"`
}

var pointsSchema = bigquery.Schema{
	{Name: "ingestion_time", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "collection_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "definition_sha", Type: bigquery.StringFieldType, Required: true},
	{Name: "record_sha", Type: bigquery.StringFieldType},
	{Name: "node_key", Type: bigquery.StringFieldType, Required: true},
	{Name: "path", Type: bigquery.StringFieldType, Required: true},
	{Name: "depth", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "name", Type: bigquery.StringFieldType, Required: true},
	{Name: "description", Type: bigquery.StringFieldType},
	{Name: "target", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "hits", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "hit_ratio", Type: bigquery.FloatFieldType},
	{Name: "target_buckets", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "hit_buckets", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "full_buckets", Type: bigquery.IntegerFieldType, Required: true},
}

var bucketsSchema = bigquery.Schema{
	{Name: "ingestion_time", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "collection_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "definition_sha", Type: bigquery.StringFieldType, Required: true},
	{Name: "record_sha", Type: bigquery.StringFieldType},
	{Name: "node_key", Type: bigquery.StringFieldType, Required: true},
	{Name: "bucket", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "labels", Type: bigquery.RecordFieldType, Repeated: true, Schema: bigquery.Schema{
		{Name: "axis", Type: bigquery.StringFieldType},
		{Name: "value", Type: bigquery.StringFieldType},
	}},
	{Name: "goal", Type: bigquery.StringFieldType},
	{Name: "target", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "hits", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "class", Type: bigquery.StringFieldType, Required: true},
}

// nullRatio drops ratios BigQuery cannot store
func nullRatio(r grid.Ratio) bigquery.NullFloat64 {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: f, Valid: true}
}

// PointRows lists every node of the tree in pre-order
func PointRows(ct *covtree.CoverageTree, collection string, ingestionTime time.Time) ([]PointRow, error) {
	summary, err := grid.SummaryGrid(ct, tree.Root)
	if err != nil {
		return nil, fmt.Errorf("summarise tree: %w", err)
	}

	rows := make([]PointRow, 0, len(summary))
	for _, s := range summary {
		d := ct.NodeByKey(s.Key).Data
		rows = append(rows, PointRow{
			IngestionTime: ingestionTime,
			CollectionID:  collection,
			DefinitionSHA: d.Reading.DefSHA(),
			RecordSHA:     d.Reading.RecSHA(),
			NodeKey:       string(s.Key),
			Path:          s.Path,
			Depth:         d.Point.Depth,
			Name:          d.Point.Name,
			Description:   s.Description,
			Target:        s.Target,
			Hits:          s.Hits,
			HitRatio:      nullRatio(s.HitRatio),
			TargetBuckets: s.TargetBuckets,
			HitBuckets:    s.HitBuckets,
			FullBuckets:   s.FullBuckets,
		})
	}
	return rows, nil
}

// BucketRows lists the buckets of every leaf coverpoint
func BucketRows(ct *covtree.CoverageTree, collection string, ingestionTime time.Time) ([]BucketRow, error) {
	var rows []BucketRow
	for node := range ct.Walk() {
		if !node.IsLeaf() {
			continue
		}
		pt, err := grid.PointGrid(node)
		if err != nil {
			return nil, fmt.Errorf("bucket grid for %q: %w", node.Key, err)
		}
		axes := pt.AxisNames()
		for _, b := range pt.Rows {
			labels := make([]Label, 0, len(axes))
			for _, axis := range axes {
				labels = append(labels, Label{Axis: axis, Value: b.Labels[axis]})
			}
			rows = append(rows, BucketRow{
				IngestionTime: ingestionTime,
				CollectionID:  collection,
				DefinitionSHA: node.Data.Reading.DefSHA(),
				RecordSHA:     node.Data.Reading.RecSHA(),
				NodeKey:       string(node.Key),
				Bucket:        b.Bucket,
				Labels:        labels,
				Goal:          b.GoalName,
				Target:        b.Target,
				Hits:          b.Hits,
				Class:         string(b.Class()),
			})
		}
	}
	return rows, nil
}

// Putter streams rows into a table. *bigquery.Inserter satisfies it.
type Putter interface {
	Put(ctx context.Context, src interface{}) error
}

// Stats counts the rows sent by an export
type Stats struct {
	PointRows   int
	BucketRows  int
	FailedBatch int
}

// Exporter writes coverage trees into a BigQuery dataset
type Exporter struct {
	Client  *bigquery.Client
	Dataset string
	Log     *log.Logger
}

// alreadyExists reports whether a create call failed because the resource
// is already there
func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		return true
	}
	return strings.Contains(err.Error(), "Already Exists") ||
		strings.Contains(err.Error(), "alreadyExists") ||
		strings.Contains(err.Error(), "409")
}

// EnsureDatasetAndTables creates the dataset and tables if they don't exist
func (e *Exporter) EnsureDatasetAndTables(ctx context.Context) error {
	dataset := e.Client.Dataset(e.Dataset)

	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil {
		if !alreadyExists(err) {
			return fmt.Errorf("create dataset: %w", err)
		}
	} else {
		e.Log.Info("Created dataset %s", e.Dataset)
	}

	tables := []struct {
		name       string
		schema     bigquery.Schema
		clustering []string
	}{
		{PointsTable, pointsSchema, []string{"definition_sha", "collection_id", "node_key"}},
		{BucketsTable, bucketsSchema, []string{"definition_sha", "collection_id", "node_key"}},
	}
	for _, t := range tables {
		err := dataset.Table(t.name).Create(ctx, &bigquery.TableMetadata{
			Schema: t.schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Field: "ingestion_time",
			},
			Clustering: &bigquery.Clustering{
				Fields: t.clustering,
			},
		})
		if err != nil {
			if !alreadyExists(err) {
				return fmt.Errorf("create %s table: %w", t.name, err)
			}
			continue
		}
		e.Log.Info("Created table %s", t.name)
	}
	return nil
}

// Export streams the rows of a coverage tree into the dataset
func (e *Exporter) Export(ctx context.Context, ct *covtree.CoverageTree, collection string, ingestionTime time.Time) (Stats, error) {
	points, err := PointRows(ct, collection, ingestionTime)
	if err != nil {
		return Stats{}, err
	}
	buckets, err := BucketRows(ct, collection, ingestionTime)
	if err != nil {
		return Stats{}, err
	}

	dataset := e.Client.Dataset(e.Dataset)
	return Send(ctx, e.Log,
		dataset.Table(PointsTable).Inserter(), points,
		dataset.Table(BucketsTable).Inserter(), buckets)
}

// Send writes point and bucket rows through the given putters in batches.
// A failed batch is logged and counted but does not stop the export.
func Send(ctx context.Context, logger *log.Logger, pointPut Putter, points []PointRow, bucketPut Putter, buckets []BucketRow) (Stats, error) {
	var stats Stats

	sent, failed, err := putBatches(ctx, logger, PointsTable, pointPut, points)
	stats.PointRows, stats.FailedBatch = sent, failed
	if err != nil {
		return stats, err
	}

	sent, failed, err = putBatches(ctx, logger, BucketsTable, bucketPut, buckets)
	stats.BucketRows = sent
	stats.FailedBatch += failed
	return stats, err
}

func putBatches[R any](ctx context.Context, logger *log.Logger, table string, p Putter, rows []R) (sent, failed int, err error) {
	for start := 0; start < len(rows); start += BatchSize {
		if err := ctx.Err(); err != nil {
			return sent, failed, fmt.Errorf("insert %s: %w", table, err)
		}
		end := min(start+BatchSize, len(rows))
		batch := make([]*R, 0, end-start)
		for j := start; j < end; j++ {
			batch = append(batch, &rows[j])
		}
		if err := p.Put(ctx, batch); err != nil {
			logger.Warning("%s: batch insert failed at offset %d: %v", table, start, err)
			failed++
			continue
		}
		sent += len(batch)
	}
	return sent, failed, nil
}
