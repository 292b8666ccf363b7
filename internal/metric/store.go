package metric

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/meteo-core/internal/infrastructure/database"
)

// Store is the durable home of the metric catalog and its readings.
//
// Implementations must be safe for one writer (the sampling scheduler)
// running alongside any number of readers (query requests).
type Store interface {
	// EnsureCatalog creates the catalog and readings tables if absent.
	EnsureCatalog(ctx context.Context) error

	// RegisterMetric adds a metric to the catalog. Registering an existing
	// name is a no-op: the first registration's kind, unit and datatype
	// win. A different datatype returns ErrDatatypeConflict.
	RegisterMetric(ctx context.Context, m Metric) error

	// WriteReading stores one reading. A reading for the same metric and
	// second as an existing one replaces its value.
	WriteReading(ctx context.Context, r Reading) error

	// WriteReadings stores each reading independently. It returns how many
	// were written and the joined errors of the ones that failed.
	WriteReadings(ctx context.Context, rs []Reading) (int, error)

	// ReadRange returns the readings with start <= time <= end, oldest first.
	// A registered metric with no readings in range yields an empty series.
	ReadRange(ctx context.Context, name string, start, end time.Time) (Series, error)

	// ListMetrics enumerates the catalog by name.
	ListMetrics(ctx context.Context) ([]Summary, error)

	// GetMetadata returns the catalog entry for name.
	GetMetadata(ctx context.Context, name string) (Metric, error)
}

const catalogSchema = `
	CREATE TABLE IF NOT EXISTS metrics (
		id       INTEGER PRIMARY KEY,
		name     TEXT NOT NULL UNIQUE,
		kind     TEXT NOT NULL DEFAULT '',
		unit     TEXT NOT NULL DEFAULT '',
		datatype TEXT NOT NULL CHECK (datatype IN ('INTEGER', 'REAL'))
	) STRICT;
	CREATE TABLE IF NOT EXISTS readings (
		metric_id INTEGER NOT NULL REFERENCES metrics(id) ON DELETE CASCADE,
		date_time TEXT NOT NULL,
		value     ANY NOT NULL,
		PRIMARY KEY (metric_id, date_time)
	) STRICT, WITHOUT ROWID;
`

// catalogEntry is the cached identity of a registered metric.
type catalogEntry struct {
	id       int64
	datatype Datatype
}

// SQLiteStore implements Store on the shared SQLite database.
type SQLiteStore struct {
	db database.Querier

	mu    sync.RWMutex
	cache map[string]catalogEntry
}

// NewSQLiteStore creates a store on an open connection. The schema is
// expected to exist already, either through migrations or EnsureCatalog.
func NewSQLiteStore(db database.Querier) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		cache: make(map[string]catalogEntry),
	}
}

// EnsureCatalog creates the catalog and readings tables if they don't exist.
func (s *SQLiteStore) EnsureCatalog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, catalogSchema); err != nil {
		return fmt.Errorf("%w: creating catalog: %w", ErrStorage, err)
	}
	return nil
}

// RegisterMetric inserts the catalog row for m unless one already exists.
func (s *SQLiteStore) RegisterMetric(ctx context.Context, m Metric) error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrInvalidName
	}
	datatype, err := ParseDatatype(string(m.Datatype))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metrics (name, kind, unit, datatype) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		m.Name, m.Kind, m.Unit, string(datatype),
	)
	if err != nil {
		return fmt.Errorf("%w: registering %q: %w", ErrStorage, m.Name, err)
	}

	entry, err := s.lookup(ctx, m.Name)
	if err != nil {
		return err
	}
	if entry.datatype != datatype {
		return fmt.Errorf("%w: %q is %s, not %s", ErrDatatypeConflict, m.Name, entry.datatype, datatype)
	}
	return nil
}

// WriteReading upserts one reading at second resolution.
func (s *SQLiteStore) WriteReading(ctx context.Context, r Reading) error {
	entry, err := s.lookup(ctx, r.Metric)
	if err != nil {
		return err
	}

	value, err := entry.datatype.Coerce(r.Value)
	if err != nil {
		return fmt.Errorf("metric %q: %w", r.Metric, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO readings (metric_id, date_time, value) VALUES (?, ?, ?)
		 ON CONFLICT(metric_id, date_time) DO UPDATE SET value = excluded.value`,
		entry.id, FormatTime(r.Time), value,
	)
	if err != nil {
		return fmt.Errorf("%w: writing %q: %w", ErrStorage, r.Metric, err)
	}
	return nil
}

// WriteReadings writes each reading on its own. Failures do not undo
// readings already written.
func (s *SQLiteStore) WriteReadings(ctx context.Context, rs []Reading) (int, error) {
	var errs []error
	written := 0
	for _, r := range rs {
		if err := s.WriteReading(ctx, r); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}

// ReadRange returns the inclusive range [start, end] for name.
// Readings are stored at whole seconds, so a fractional start rounds up
// to the next second and a fractional end rounds down.
func (s *SQLiteStore) ReadRange(ctx context.Context, name string, start, end time.Time) (Series, error) {
	entry, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if whole := start.Truncate(time.Second); !whole.Equal(start) {
		start = whole.Add(time.Second)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date_time, value FROM readings
		 WHERE metric_id = ? AND date_time BETWEEN ? AND ?
		 ORDER BY date_time`,
		entry.id, FormatTime(start), FormatTime(end),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %w", ErrStorage, name, err)
	}
	defer rows.Close()

	series := Series{}
	for rows.Next() {
		var stamp string
		var raw any
		if err := rows.Scan(&stamp, &raw); err != nil {
			return nil, fmt.Errorf("%w: scanning %q: %w", ErrStorage, name, err)
		}
		t, err := ParseTime(stamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrStorage, name, err)
		}
		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q at %s: %w", ErrStorage, name, stamp, err)
		}
		series = append(series, Point{Time: t, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %q: %w", ErrStorage, name, err)
	}
	return series, nil
}

// ListMetrics returns every catalog entry's name and kind, sorted by name.
func (s *SQLiteStore) ListMetrics(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, kind FROM metrics ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: listing metrics: %w", ErrStorage, err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.Name, &sum.Kind); err != nil {
			return nil, fmt.Errorf("%w: scanning metric: %w", ErrStorage, err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating metrics: %w", ErrStorage, err)
	}
	return summaries, nil
}

// GetMetadata returns the catalog entry for name.
func (s *SQLiteStore) GetMetadata(ctx context.Context, name string) (Metric, error) {
	var m Metric
	var datatype string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, kind, unit, datatype FROM metrics WHERE name = ?", name,
	).Scan(&m.Name, &m.Kind, &m.Unit, &datatype)
	if errors.Is(err, sql.ErrNoRows) {
		return Metric{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	if err != nil {
		return Metric{}, fmt.Errorf("%w: reading metadata for %q: %w", ErrStorage, name, err)
	}
	m.Datatype = Datatype(datatype)
	return m, nil
}

// lookup resolves a metric name to its id, consulting the cache first.
func (s *SQLiteStore) lookup(ctx context.Context, name string) (catalogEntry, error) {
	s.mu.RLock()
	entry, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	var datatype string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, datatype FROM metrics WHERE name = ?", name,
	).Scan(&entry.id, &datatype)
	if errors.Is(err, sql.ErrNoRows) {
		return catalogEntry{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	if err != nil {
		return catalogEntry{}, fmt.Errorf("%w: looking up %q: %w", ErrStorage, name, err)
	}
	entry.datatype = Datatype(datatype)

	s.mu.Lock()
	s.cache[name] = entry
	s.mu.Unlock()
	return entry, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected stored value type %T", v)
	}
}
