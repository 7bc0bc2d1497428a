package bqexport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/coverage/coveragetest"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/grid"
	"github.com/jupierce/coverage-viewer/pkg/log"
)

var ingested = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func petsTree(t *testing.T) *covtree.CoverageTree {
	t.Helper()
	ct, err := covtree.FromReadings([]coverage.Reading{coveragetest.Pets()})
	require.NoError(t, err)
	return ct
}

func TestPointRows(t *testing.T) {
	rows, err := PointRows(petsTree(t), "nightly", ingested)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	top := rows[0]
	require.Equal(t, "0-0-2", top.NodeKey)
	require.Equal(t, "top", top.Path)
	require.Equal(t, "nightly", top.CollectionID)
	require.Equal(t, "def-pets", top.DefinitionSHA)
	require.Equal(t, "rec-pets", top.RecordSHA)
	require.Equal(t, ingested, top.IngestionTime)
	require.Equal(t, 0, top.Depth)
	require.Equal(t, 15, top.Target)
	require.Equal(t, 7, top.Hits)
	require.True(t, top.HitRatio.Valid)
	require.InDelta(t, 7.0/15.0, top.HitRatio.Float64, 1e-9)

	require.Equal(t, "top / dogs", rows[1].Path)
	require.Equal(t, 1, rows[1].Depth)
	require.Equal(t, "top / cats", rows[2].Path)
}

func TestNullRatio(t *testing.T) {
	require.False(t, nullRatio(grid.Ratio(math.NaN())).Valid)
	require.False(t, nullRatio(grid.Ratio(math.Inf(1))).Valid)
	r := nullRatio(grid.NewRatio(1, 4))
	require.True(t, r.Valid)
	require.Equal(t, 0.25, r.Float64)
}

func TestBucketRows(t *testing.T) {
	rows, err := BucketRows(petsTree(t), "nightly", ingested)
	require.NoError(t, err)
	require.Len(t, rows, 8)

	first := rows[0]
	require.Equal(t, "0-0-1", first.NodeKey)
	require.Equal(t, 0, first.Bucket)
	require.Equal(t, []Label{{Axis: "size", Value: "small"}, {Axis: "colour", Value: "red"}}, first.Labels)
	require.Equal(t, "DEFAULT", first.Goal)
	require.Equal(t, string(grid.ClassFull), first.Class)

	require.Equal(t, string(grid.ClassIgnore), rows[5].Class)

	cats := rows[6]
	require.Equal(t, "0-1-2", cats.NodeKey)
	require.Equal(t, 6, cats.Bucket)
	require.Equal(t, []Label{{Axis: "mood", Value: "happy"}}, cats.Labels)
	require.Equal(t, 10, cats.Target)
	require.Equal(t, 4, cats.Hits)
}

type fakePutter struct {
	sizes  []int
	failAt int
}

func (f *fakePutter) Put(_ context.Context, src interface{}) error {
	call := len(f.sizes)
	switch rows := src.(type) {
	case []*PointRow:
		f.sizes = append(f.sizes, len(rows))
	case []*BucketRow:
		f.sizes = append(f.sizes, len(rows))
	default:
		return fmt.Errorf("unexpected rows %T", src)
	}
	if call+1 == f.failAt {
		return errors.New("quota exceeded")
	}
	return nil
}

func TestSendBatches(t *testing.T) {
	points := make([]PointRow, 1201)
	buckets := make([]BucketRow, 3)
	pp, bp := &fakePutter{}, &fakePutter{}

	stats, err := Send(context.Background(), log.Discard(), pp, points, bp, buckets)
	require.NoError(t, err)
	require.Equal(t, []int{500, 500, 201}, pp.sizes)
	require.Equal(t, []int{3}, bp.sizes)
	require.Equal(t, Stats{PointRows: 1201, BucketRows: 3}, stats)
}

func TestSendFailedBatchContinues(t *testing.T) {
	points := make([]PointRow, 1201)
	pp := &fakePutter{failAt: 2}

	stats, err := Send(context.Background(), log.Discard(), pp, points, &fakePutter{}, nil)
	require.NoError(t, err)
	require.Len(t, pp.sizes, 3)
	require.Equal(t, 701, stats.PointRows)
	require.Equal(t, 1, stats.FailedBatch)
}

func TestSendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Send(ctx, log.Discard(), &fakePutter{}, make([]PointRow, 2), &fakePutter{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAlreadyExists(t *testing.T) {
	require.True(t, alreadyExists(&googleapi.Error{Code: 409, Message: "conflict"}))
	require.True(t, alreadyExists(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 409})))
	require.True(t, alreadyExists(errors.New("googleapi: Error 409: Already Exists: Dataset p:d")))
	require.False(t, alreadyExists(&googleapi.Error{Code: 403, Message: "denied"}))
}
