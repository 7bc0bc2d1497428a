package jsonstore

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
)

// Reading is one record of a document together with its definition
type Reading struct {
	tables coverage.Schema
	def    *Section
	rec    *Section
}

func (r *Reading) DefSHA() string { return r.def.SHA }
func (r *Reading) RecSHA() string { return r.rec.SHA }

func (r *Reading) Points(start, end, depth int) iter.Seq[coverage.Point] {
	start, end = coverage.DepthWindow(start, end, depth)
	return decode(r.tables, r.def, coverage.TablePoint, start, end, coverage.PointFromRow)
}

func (r *Reading) PointHits(start, end, depth int) iter.Seq[coverage.PointHit] {
	start, end = coverage.DepthWindow(start, end, depth)
	return decode(r.tables, r.rec, coverage.TablePointHit, start, end, coverage.PointHitFromRow)
}

func (r *Reading) Axes(start, end int) iter.Seq[coverage.Axis] {
	return decode(r.tables, r.def, coverage.TableAxis, start, end, coverage.AxisFromRow)
}

func (r *Reading) AxisValues(start, end int) iter.Seq[coverage.AxisValue] {
	return decode(r.tables, r.def, coverage.TableAxisValue, start, end, coverage.AxisValueFromRow)
}

func (r *Reading) Goals(start, end int) iter.Seq[coverage.Goal] {
	return decode(r.tables, r.def, coverage.TableGoal, start, end, coverage.GoalFromRow)
}

func (r *Reading) BucketGoals(start, end int) iter.Seq[coverage.BucketGoal] {
	return decode(r.tables, r.def, coverage.TableBucketGoal, start, end, coverage.BucketGoalFromRow)
}

func (r *Reading) BucketHits(start, end int) iter.Seq[coverage.BucketHit] {
	return decode(r.tables, r.rec, coverage.TableBucketHit, start, end, coverage.BucketHitFromRow)
}

// decode lazily zips each row in the window with its table header
func decode[T any](schema coverage.Schema, s *Section, table string, start, end int, fromRow func(coverage.Row) T) iter.Seq[T] {
	columns := schema.Columns(table)
	rows := s.Tables[table]
	lo, hi := coverage.Window(len(rows), start, end)
	return func(yield func(T) bool) {
		for i := lo; i < hi; i++ {
			if !yield(fromRow(coverage.DecodeRow(columns, rows[i]))) {
				return
			}
		}
	}
}

// Reader serves readings from a validated document
type Reader struct {
	doc *Document
}

// NewReader validates a document and wraps it
func NewReader(doc *Document) (*Reader, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &Reader{doc: doc}, nil
}

// Load decodes and validates a document from r
func Load(r io.Reader) (*Reader, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode coverage document: %w", err)
	}
	return NewReader(&doc)
}

// Open loads a document from a file
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage document: %w", err)
	}
	defer f.Close()

	reader, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return reader, nil
}

// Document returns the underlying document
func (r *Reader) Document() *Document {
	return r.doc
}

// Len returns the number of records
func (r *Reader) Len() int {
	return len(r.doc.Records)
}

func (r *Reader) Read(id int) (coverage.Reading, error) {
	if id < 0 || id >= len(r.doc.Records) {
		return nil, fmt.Errorf("read record %d of %d: %w", id, len(r.doc.Records), coverage.ErrRecordRange)
	}
	return r.reading(id), nil
}

func (r *Reader) ReadAll() iter.Seq2[int, coverage.Reading] {
	return func(yield func(int, coverage.Reading) bool) {
		for i := range r.doc.Records {
			if !yield(i, r.reading(i)) {
				return
			}
		}
	}
}

func (r *Reader) reading(id int) *Reading {
	rec := &r.doc.Records[id]
	return &Reading{tables: r.doc.Tables, def: &r.doc.Definitions[rec.Def], rec: rec}
}

var (
	_ coverage.Reader  = (*Reader)(nil)
	_ coverage.Reading = (*Reading)(nil)
)
