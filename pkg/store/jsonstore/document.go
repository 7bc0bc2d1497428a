// Package jsonstore reads and writes coverage readings as a single JSON
// document of positional tables:
//
//	{
//	  "tables":      {"point": ["start", "depth", ...], ...},
//	  "definitions": [{"sha": "...", "point": [[0, 0, ...], ...], ...}],
//	  "records":     [{"def": 0, "sha": "...", "point_hit": [...], ...}]
//	}
package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
)

var (
	// ErrMissingTable is returned when a document lacks a table header or a
	// section lacks one of its tables
	ErrMissingTable = errors.New("missing table")

	// ErrMissingColumn is returned when a table header lacks a column
	ErrMissingColumn = errors.New("missing column")

	// ErrRowWidth is returned when a row's width differs from its header
	ErrRowWidth = errors.New("row width does not match table columns")

	// ErrDefinitionRange is returned when a record refers to a missing definition
	ErrDefinitionRange = errors.New("record definition out of range")
)

// Rows is a table of positional rows
type Rows [][]any

// Section is a definition or a record: a hash plus positional tables. Def is
// the definition index and only meaningful for records.
type Section struct {
	SHA    string
	Def    int
	Tables map[string]Rows
	record bool
}

// decodeSection reads a section, keeping only keys named in tables. Other
// keys carry metadata this package does not use.
func decodeSection(b []byte, tables coverage.Schema) (Section, error) {
	var s Section
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return s, err
	}
	s.Tables = make(map[string]Rows, len(raw))
	for key, value := range raw {
		switch key {
		case "sha":
			if err := json.Unmarshal(value, &s.SHA); err != nil {
				return s, fmt.Errorf("decode sha: %w", err)
			}
		case "def":
			s.record = true
			if err := json.Unmarshal(value, &s.Def); err != nil {
				return s, fmt.Errorf("decode def: %w", err)
			}
		default:
			if _, ok := tables[key]; !ok {
				continue
			}
			dec := json.NewDecoder(bytes.NewReader(value))
			dec.UseNumber()
			var rows Rows
			if err := dec.Decode(&rows); err != nil {
				return s, fmt.Errorf("decode table %s: %w", key, err)
			}
			s.Tables[key] = rows
		}
	}
	return s, nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Tables)+2)
	out["sha"] = s.SHA
	if s.record {
		out["def"] = s.Def
	}
	for table, rows := range s.Tables {
		if rows == nil {
			rows = Rows{}
		}
		out[table] = rows
	}
	return json.Marshal(out)
}

// Document is a whole JSON coverage file
type Document struct {
	Tables      coverage.Schema `json:"tables"`
	Definitions []Section       `json:"definitions"`
	Records     []Section       `json:"records"`
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var raw struct {
		Tables      coverage.Schema   `json:"tables"`
		Definitions []json.RawMessage `json:"definitions"`
		Records     []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	d.Tables = raw.Tables
	d.Definitions = make([]Section, 0, len(raw.Definitions))
	for i, b := range raw.Definitions {
		s, err := decodeSection(b, raw.Tables)
		if err != nil {
			return fmt.Errorf("decode definition %d: %w", i, err)
		}
		d.Definitions = append(d.Definitions, s)
	}
	d.Records = make([]Section, 0, len(raw.Records))
	for i, b := range raw.Records {
		s, err := decodeSection(b, raw.Tables)
		if err != nil {
			return fmt.Errorf("decode record %d: %w", i, err)
		}
		d.Records = append(d.Records, s)
	}
	return nil
}

// NewDocument returns an empty document with the canonical schema
func NewDocument() *Document {
	return &Document{
		Tables:      coverage.DefaultTables(),
		Definitions: []Section{},
		Records:     []Section{},
	}
}

// Validate checks that every table has a header naming its columns, every
// section carries its tables, every row matches its header width and every
// record refers to an existing definition.
func (d *Document) Validate() error {
	for table, columns := range coverage.DefaultTables() {
		have, ok := d.Tables[table]
		if !ok {
			return fmt.Errorf("validate tables: %s: %w", table, ErrMissingTable)
		}
		for _, col := range columns {
			if !slices.Contains(have, col) {
				return fmt.Errorf("validate table %s: %s: %w", table, col, ErrMissingColumn)
			}
		}
	}
	for i, def := range d.Definitions {
		if err := d.validateSection(def, coverage.DefinitionTables); err != nil {
			return fmt.Errorf("validate definition %d: %w", i, err)
		}
	}
	for i, rec := range d.Records {
		if rec.Def < 0 || rec.Def >= len(d.Definitions) {
			return fmt.Errorf("validate record %d: def %d of %d: %w", i, rec.Def, len(d.Definitions), ErrDefinitionRange)
		}
		if err := d.validateSection(rec, coverage.RecordTables); err != nil {
			return fmt.Errorf("validate record %d: %w", i, err)
		}
	}
	return nil
}

func (d *Document) validateSection(s Section, tables []string) error {
	for _, table := range tables {
		rows, ok := s.Tables[table]
		if !ok {
			return fmt.Errorf("%s: %w", table, ErrMissingTable)
		}
		width := len(d.Tables[table])
		for i, row := range rows {
			if len(row) != width {
				return fmt.Errorf("%s row %d has %d values for %d columns: %w", table, i, len(row), width, ErrRowWidth)
			}
		}
	}
	return nil
}

// Append adds a reading as a new definition and record and returns the
// record index
func (d *Document) Append(r coverage.Reading) int {
	def := Section{SHA: r.DefSHA(), Tables: map[string]Rows{
		coverage.TablePoint:      encode(d.Tables, coverage.TablePoint, r.Points(0, coverage.All, 0)),
		coverage.TableAxis:       encode(d.Tables, coverage.TableAxis, r.Axes(0, coverage.All)),
		coverage.TableAxisValue:  encode(d.Tables, coverage.TableAxisValue, r.AxisValues(0, coverage.All)),
		coverage.TableGoal:       encode(d.Tables, coverage.TableGoal, r.Goals(0, coverage.All)),
		coverage.TableBucketGoal: encode(d.Tables, coverage.TableBucketGoal, r.BucketGoals(0, coverage.All)),
	}}
	d.Definitions = append(d.Definitions, def)

	rec := Section{SHA: r.RecSHA(), Def: len(d.Definitions) - 1, record: true, Tables: map[string]Rows{
		coverage.TablePointHit:  encode(d.Tables, coverage.TablePointHit, r.PointHits(0, coverage.All, 0)),
		coverage.TableBucketHit: encode(d.Tables, coverage.TableBucketHit, r.BucketHits(0, coverage.All)),
	}}
	d.Records = append(d.Records, rec)
	return len(d.Records) - 1
}

func encode[T any](schema coverage.Schema, table string, seq iter.Seq[T]) Rows {
	columns := schema.Columns(table)
	rows := Rows{}
	for v := range seq {
		rows = append(rows, coverage.ToRow(table, v).Values(columns))
	}
	return rows
}
