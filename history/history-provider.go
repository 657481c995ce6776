// Package history keeps the results of probe runs so that runs through
// different caches, or against the same cache over time, can be compared.
package history

import (
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// HistoryProvider stores probe records.
//
// Implementations must be thread-safe!
type HistoryProvider interface {
	// Put stores one probe record. A record with the same run id and step replaces the old one.
	Put(Record) error
	// Run returns the records of a run, ordered by step.
	Run(runID string) ([]Record, error)
	// Runs returns summaries of the most recent runs, newest first.
	// A limit of zero or less returns all runs.
	Runs(limit int) ([]RunSummary, error)
	Close() error
}

// Record is the outcome of one probe of a run.
type Record struct {
	RunID    string
	Sequence string
	Step     int
	Name     string
	URL      string
	// Accept value sent.
	MediaType string
	// Accept value echoed.
	Accept string
	// Expected and observed cache outcome ("hit", "miss", "unknown").
	Expected string
	Observed string
	// Error ending the run at this step, if any.
	Error       string
	RequestedAt time.Time
	ReceivedAt  time.Time
	// Serialized exchange.
	Bytes []byte
}

type RunSummary struct {
	RunID     string
	Sequence  string
	URL       string
	StartedAt time.Time
	Steps     int
	Failed    bool
}

var ErrRunNotFound = errors.New("run not found")

type MemHistory struct {
	mutex *sync.RWMutex
	db    map[string][]Record
}

func NewMemHistory() MemHistory {
	return MemHistory{
		mutex: &sync.RWMutex{},
		db:    make(map[string][]Record),
	}
}

func (m MemHistory) Put(r Record) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	records := m.db[r.RunID]
	for i := range records {
		if records[i].Step == r.Step {
			records[i] = r
			return nil
		}
	}
	records = append(records, r)
	sort.Slice(records, func(i, j int) bool { return records[i].Step < records[j].Step })
	m.db[r.RunID] = records
	return nil
}

func (m MemHistory) Run(runID string) ([]Record, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	records, ok := m.db[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return append([]Record(nil), records...), nil
}

func (m MemHistory) Runs(limit int) ([]RunSummary, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	summaries := make([]RunSummary, 0, len(m.db))
	for _, records := range m.db {
		summaries = append(summaries, summarize(records))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m MemHistory) Close() error {
	return nil
}

func summarize(records []Record) RunSummary {
	s := RunSummary{Steps: len(records)}
	for i, r := range records {
		if i == 0 || r.RequestedAt.Before(s.StartedAt) {
			s.StartedAt = r.RequestedAt
		}
		s.RunID, s.Sequence = r.RunID, r.Sequence
		if r.Error != "" {
			s.Failed = true
		}
	}
	if len(records) > 0 {
		s.URL = records[0].URL
	}
	return s
}

type SQLiteHistory struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteHistory opens the history with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteHistory(filename string) (SQLiteHistory, error) {
	if filename == "" {
		filename = ":memory:"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteHistory{}, err
	}
	// a memory db exists per connection
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS probes (
			run_id TEXT NOT NULL,
			sequence TEXT NOT NULL,
			step INTEGER NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			media_type TEXT NOT NULL,
			accept TEXT NOT NULL,
			expected TEXT NOT NULL,
			observed TEXT NOT NULL,
			error TEXT NOT NULL,
			requested_at INTEGER NOT NULL,
			received_at INTEGER NOT NULL,
			bytes BLOB,
			PRIMARY KEY (run_id, step)
		)`,
		"CREATE INDEX IF NOT EXISTS requested_at_idx ON probes (requested_at)",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return SQLiteHistory{}, err
		}
	}
	return SQLiteHistory{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteHistory) Put(r Record) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO probes
		(run_id, sequence, step, name, url, media_type, accept, expected, observed, error,
		requested_at, received_at, bytes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Sequence, r.Step, r.Name, r.URL, r.MediaType, r.Accept, r.Expected, r.Observed, r.Error,
		r.RequestedAt.UnixMilli(), r.ReceivedAt.UnixMilli(), r.Bytes)
	return err
}

func (s SQLiteHistory) Run(runID string) ([]Record, error) {
	rows, err := s.db.Query(`SELECT
		run_id, sequence, step, name, url, media_type, accept, expected, observed, error,
		requested_at, received_at, bytes
		FROM probes WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]Record, 0)
	for rows.Next() {
		var r Record
		var req, rec int64
		if err := rows.Scan(&r.RunID, &r.Sequence, &r.Step, &r.Name, &r.URL, &r.MediaType, &r.Accept,
			&r.Expected, &r.Observed, &r.Error, &req, &rec, &r.Bytes); err != nil {
			return records, err
		}
		r.RequestedAt = time.UnixMilli(req)
		r.ReceivedAt = time.UnixMilli(rec)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return records, err
	}
	if len(records) == 0 {
		return nil, ErrRunNotFound
	}
	return records, nil
}

func (s SQLiteHistory) Runs(limit int) ([]RunSummary, error) {
	query := `SELECT run_id, MIN(sequence),
		(SELECT p0.url FROM probes p0 WHERE p0.run_id = probes.run_id ORDER BY p0.step LIMIT 1),
		MIN(requested_at), COUNT(*), MAX(error != '')
		FROM probes GROUP BY run_id ORDER BY MIN(requested_at) DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summaries := make([]RunSummary, 0)
	for rows.Next() {
		var sum RunSummary
		var started int64
		if err := rows.Scan(&sum.RunID, &sum.Sequence, &sum.URL, &started, &sum.Steps, &sum.Failed); err != nil {
			return summaries, err
		}
		sum.StartedAt = time.UnixMilli(started)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s SQLiteHistory) Close() error {
	return s.db.Close()
}
