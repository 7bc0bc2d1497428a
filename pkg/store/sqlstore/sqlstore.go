// Package sqlstore keeps coverage readings in a SQLite database, one row
// per table entry keyed by definition or run.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
)

const schemaVersion = 1

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

		CREATE TABLE IF NOT EXISTS definition (
			definition INTEGER PRIMARY KEY AUTOINCREMENT,
			sha        TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS run (
			run        INTEGER PRIMARY KEY AUTOINCREMENT,
			definition INTEGER NOT NULL REFERENCES definition(definition) ON DELETE CASCADE,
			sha        TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS point (
			definition       INTEGER NOT NULL REFERENCES definition(definition) ON DELETE CASCADE,
			start            INTEGER NOT NULL,
			depth            INTEGER NOT NULL,
			"end"            INTEGER NOT NULL,
			axis_start       INTEGER NOT NULL,
			axis_end         INTEGER NOT NULL,
			axis_value_start INTEGER NOT NULL,
			axis_value_end   INTEGER NOT NULL,
			goal_start       INTEGER NOT NULL,
			goal_end         INTEGER NOT NULL,
			bucket_start     INTEGER NOT NULL,
			bucket_end       INTEGER NOT NULL,
			target           INTEGER NOT NULL,
			target_buckets   INTEGER NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (definition, start, depth)
		);

		CREATE TABLE IF NOT EXISTS axis (
			definition  INTEGER NOT NULL REFERENCES definition(definition) ON DELETE CASCADE,
			start       INTEGER NOT NULL,
			value_start INTEGER NOT NULL,
			value_end   INTEGER NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (definition, start)
		);

		CREATE TABLE IF NOT EXISTS axis_value (
			definition INTEGER NOT NULL REFERENCES definition(definition) ON DELETE CASCADE,
			start      INTEGER NOT NULL,
			value      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (definition, start)
		);

		CREATE TABLE IF NOT EXISTS goal (
			definition  INTEGER NOT NULL REFERENCES definition(definition) ON DELETE CASCADE,
			start       INTEGER NOT NULL,
			target      INTEGER NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (definition, start)
		);

		CREATE TABLE IF NOT EXISTS bucket_goal (
			definition INTEGER NOT NULL REFERENCES definition(definition) ON DELETE CASCADE,
			start      INTEGER NOT NULL,
			goal       INTEGER NOT NULL,
			PRIMARY KEY (definition, start)
		);

		CREATE TABLE IF NOT EXISTS point_hit (
			run          INTEGER NOT NULL REFERENCES run(run) ON DELETE CASCADE,
			start        INTEGER NOT NULL,
			depth        INTEGER NOT NULL,
			hits         INTEGER NOT NULL,
			hit_buckets  INTEGER NOT NULL,
			full_buckets INTEGER NOT NULL,
			PRIMARY KEY (run, start, depth)
		);

		CREATE TABLE IF NOT EXISTS bucket_hit (
			run   INTEGER NOT NULL REFERENCES run(run) ON DELETE CASCADE,
			start INTEGER NOT NULL,
			hits  INTEGER NOT NULL,
			PRIMARY KEY (run, start)
		);

		CREATE INDEX IF NOT EXISTS idx_run_definition ON run(definition);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		return err
	}
	return nil
}

// Store reads and writes readings in one SQLite file
type Store struct {
	db   *sql.DB
	path string

	mu  sync.Mutex
	err error
}

// Open opens or creates a coverage database
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file
func (s *Store) Path() string {
	return s.path
}

// Write stores the reading's definition and hits in one transaction and
// returns the run id
func (s *Store) Write(r coverage.Reading) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO definition (sha) VALUES (?)", r.DefSHA())
	if err != nil {
		return 0, fmt.Errorf("insert definition: %w", err)
	}
	defID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert definition: %w", err)
	}

	inserts := []struct {
		table string
		query string
		rows  iter.Seq[[]any]
	}{
		{coverage.TablePoint, `INSERT INTO point (definition, start, depth, "end", axis_start, axis_end,
			axis_value_start, axis_value_end, goal_start, goal_end, bucket_start, bucket_end,
			target, target_buckets, name, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			values(r.Points(0, coverage.All, 0))},
		{coverage.TableAxis, `INSERT INTO axis (definition, start, value_start, value_end, name, description)
			VALUES (?, ?, ?, ?, ?, ?)`, values(r.Axes(0, coverage.All))},
		{coverage.TableAxisValue, `INSERT INTO axis_value (definition, start, value) VALUES (?, ?, ?)`,
			values(r.AxisValues(0, coverage.All))},
		{coverage.TableGoal, `INSERT INTO goal (definition, start, target, name, description) VALUES (?, ?, ?, ?, ?)`,
			values(r.Goals(0, coverage.All))},
		{coverage.TableBucketGoal, `INSERT INTO bucket_goal (definition, start, goal) VALUES (?, ?, ?)`,
			values(r.BucketGoals(0, coverage.All))},
	}
	for _, ins := range inserts {
		if err := insertAll(tx, ins.query, defID, ins.rows); err != nil {
			return 0, fmt.Errorf("insert %s: %w", ins.table, err)
		}
	}

	res, err = tx.Exec("INSERT INTO run (definition, sha) VALUES (?, ?)", defID, r.RecSHA())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	if err := insertAll(tx, `INSERT INTO point_hit (run, start, depth, hits, hit_buckets, full_buckets)
		VALUES (?, ?, ?, ?, ?, ?)`, runID, values(r.PointHits(0, coverage.All, 0))); err != nil {
		return 0, fmt.Errorf("insert point_hit: %w", err)
	}
	if err := insertAll(tx, `INSERT INTO bucket_hit (run, start, hits) VALUES (?, ?, ?)`,
		runID, values(r.BucketHits(0, coverage.All))); err != nil {
		return 0, fmt.Errorf("insert bucket_hit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit write: %w", err)
	}
	return int(runID), nil
}

func values[T any](seq iter.Seq[T]) iter.Seq[[]any] {
	return func(yield func([]any) bool) {
		for v := range seq {
			if !yield(coverage.Values(v)) {
				return
			}
		}
	}
}

func insertAll(tx *sql.Tx, query string, ref int64, rows iter.Seq[[]any]) error {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for row := range rows {
		args := append([]any{ref}, row...)
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	return nil
}

// Read loads a run and its definition into memory
func (s *Store) Read(id int) (coverage.Reading, error) {
	m := &coverage.MemoryReading{}
	var defID int64
	err := s.db.QueryRow("SELECT definition, sha FROM run WHERE run = ?", id).Scan(&defID, &m.RecordSHA)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %d: %w", id, coverage.ErrRecordRange)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %d: %w", id, err)
	}
	if err := s.db.QueryRow("SELECT sha FROM definition WHERE definition = ?", defID).Scan(&m.DefinitionSHA); err != nil {
		return nil, fmt.Errorf("read definition %d: %w", defID, err)
	}

	if m.PointRows, err = query(s.db, `SELECT start, depth, "end", axis_start, axis_end, axis_value_start,
		axis_value_end, goal_start, goal_end, bucket_start, bucket_end, target, target_buckets, name, description
		FROM point WHERE definition = ? ORDER BY start, depth`, defID,
		func(rows *sql.Rows) (p coverage.Point, err error) {
			err = rows.Scan(&p.Start, &p.Depth, &p.End, &p.AxisStart, &p.AxisEnd, &p.AxisValueStart,
				&p.AxisValueEnd, &p.GoalStart, &p.GoalEnd, &p.BucketStart, &p.BucketEnd, &p.Target,
				&p.TargetBuckets, &p.Name, &p.Description)
			return p, err
		}); err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	if m.AxisRows, err = query(s.db, `SELECT start, value_start, value_end, name, description
		FROM axis WHERE definition = ? ORDER BY start`, defID,
		func(rows *sql.Rows) (a coverage.Axis, err error) {
			err = rows.Scan(&a.Start, &a.ValueStart, &a.ValueEnd, &a.Name, &a.Description)
			return a, err
		}); err != nil {
		return nil, fmt.Errorf("read axes: %w", err)
	}
	if m.AxisValueRows, err = query(s.db, `SELECT start, value FROM axis_value WHERE definition = ? ORDER BY start`, defID,
		func(rows *sql.Rows) (v coverage.AxisValue, err error) {
			err = rows.Scan(&v.Start, &v.Value)
			return v, err
		}); err != nil {
		return nil, fmt.Errorf("read axis values: %w", err)
	}
	if m.GoalRows, err = query(s.db, `SELECT start, target, name, description FROM goal WHERE definition = ? ORDER BY start`, defID,
		func(rows *sql.Rows) (g coverage.Goal, err error) {
			err = rows.Scan(&g.Start, &g.Target, &g.Name, &g.Description)
			return g, err
		}); err != nil {
		return nil, fmt.Errorf("read goals: %w", err)
	}
	if m.BucketGoalRows, err = query(s.db, `SELECT start, goal FROM bucket_goal WHERE definition = ? ORDER BY start`, defID,
		func(rows *sql.Rows) (bg coverage.BucketGoal, err error) {
			err = rows.Scan(&bg.Start, &bg.Goal)
			return bg, err
		}); err != nil {
		return nil, fmt.Errorf("read bucket goals: %w", err)
	}
	if m.PointHitRows, err = query(s.db, `SELECT start, depth, hits, hit_buckets, full_buckets
		FROM point_hit WHERE run = ? ORDER BY start, depth`, id,
		func(rows *sql.Rows) (ph coverage.PointHit, err error) {
			err = rows.Scan(&ph.Start, &ph.Depth, &ph.Hits, &ph.HitBuckets, &ph.FullBuckets)
			return ph, err
		}); err != nil {
		return nil, fmt.Errorf("read point hits: %w", err)
	}
	if m.BucketHitRows, err = query(s.db, `SELECT start, hits FROM bucket_hit WHERE run = ? ORDER BY start`, id,
		func(rows *sql.Rows) (bh coverage.BucketHit, err error) {
			err = rows.Scan(&bh.Start, &bh.Hits)
			return bh, err
		}); err != nil {
		return nil, fmt.Errorf("read bucket hits: %w", err)
	}
	return m, nil
}

func query[T any](db *sql.DB, q string, arg any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.Query(q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Runs returns every run id in insertion order
func (s *Store) Runs() ([]int, error) {
	rows, err := s.db.Query("SELECT run FROM run ORDER BY run")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReadAll yields every run in insertion order. It stops at the first
// failure, which Err then reports.
func (s *Store) ReadAll() iter.Seq2[int, coverage.Reading] {
	return func(yield func(int, coverage.Reading) bool) {
		s.setErr(nil)
		ids, err := s.Runs()
		if err != nil {
			s.setErr(err)
			return
		}
		for _, id := range ids {
			r, err := s.Read(id)
			if err != nil {
				s.setErr(err)
				return
			}
			if !yield(id, r) {
				return
			}
		}
	}
}

// Err returns the error that ended the last ReadAll, if any
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// ReadFile loads every run of an existing database. A missing file is an
// error rather than a new empty database.
func ReadFile(path string) ([]coverage.Reading, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var readings []coverage.Reading
	for _, r := range s.ReadAll() {
		readings = append(readings, r)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return readings, nil
}

// MergeFiles merges the runs of every database that share a definition and
// record hash, one merge per hash pair in order of first appearance
func MergeFiles(paths ...string) ([]*coverage.MergeReading, error) {
	var runs []coverage.Reading
	for _, path := range paths {
		readings, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", path, err)
		}
		runs = append(runs, readings...)
	}
	return coverage.MergeBySHA(runs)
}

var (
	_ coverage.Reader = (*Store)(nil)
	_ coverage.Writer = (*Store)(nil)
)
