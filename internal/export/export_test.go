package export

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/meteo-core/internal/metric"
)

func at(hms string) time.Time {
	t, err := metric.ParseTime("2026-03-01 " + hms)
	if err != nil {
		panic(err)
	}
	return t
}

// setupTestStore returns a store with "temp" (two readings) and
// "count" (one reading).
func setupTestStore(t *testing.T) *metric.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})

	store := metric.NewSQLiteStore(db)
	if err := store.EnsureCatalog(ctx); err != nil {
		t.Fatalf("EnsureCatalog() error = %v", err)
	}
	for _, m := range []metric.Metric{
		{Name: "temp", Kind: "temperature", Datatype: metric.Real},
		{Name: "count", Kind: "presence", Datatype: metric.Integer},
	} {
		if err := store.RegisterMetric(ctx, m); err != nil {
			t.Fatalf("RegisterMetric() error = %v", err)
		}
	}
	for _, r := range []metric.Reading{
		{Metric: "temp", Time: at("10:00:00"), Value: 20.5},
		{Metric: "temp", Time: at("10:01:00"), Value: 21.0},
		{Metric: "count", Time: at("10:00:00"), Value: int64(3)},
	} {
		if err := store.WriteReading(ctx, r); err != nil {
			t.Fatalf("WriteReading() error = %v", err)
		}
	}
	return store
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name string
		loc  *time.Location
		want string
	}{
		{
			name: "utc",
			want: "date,value\n2026-03-01 10:00:00,20.5\n2026-03-01 10:01:00,21\n",
		},
		{
			name: "local",
			loc:  time.FixedZone("CET", 3600),
			want: "date,value\n2026-03-01 11:00:00,20.5\n2026-03-01 11:01:00,21\n",
		},
	}

	store := setupTestStore(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rows, err := New(store, tt.loc).WriteCSV(context.Background(), &buf, "temp", at("00:00:00"), at("23:59:59"))
			if err != nil {
				t.Fatalf("WriteCSV() error = %v", err)
			}
			if rows != 2 {
				t.Errorf("rows = %d, want 2", rows)
			}
			if buf.String() != tt.want {
				t.Errorf("csv =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteCSV_EmptyRange(t *testing.T) {
	var buf bytes.Buffer
	rows, err := New(setupTestStore(t), nil).WriteCSV(context.Background(), &buf, "temp", at("12:00:00"), at("13:00:00"))
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if rows != 0 || buf.String() != "date,value\n" {
		t.Errorf("rows = %d, csv = %q", rows, buf.String())
	}
}

func TestWriteDir_AllMetrics(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := New(setupTestStore(t), nil).WriteDir(context.Background(), dir, nil, at("00:00:00"), at("23:59:59"))
	if err != nil {
		t.Fatalf("WriteDir() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want 2", paths)
	}

	data, err := os.ReadFile(filepath.Join(dir, "count.csv"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if want := "date,value\n2026-03-01 10:00:00,3\n"; string(data) != want {
		t.Errorf("count.csv = %q, want %q", data, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("directory holds %d entries, want 2 (no temp files)", len(entries))
	}
}

func TestWriteDir_UnknownMetric(t *testing.T) {
	dir := t.TempDir()

	paths, err := New(setupTestStore(t), nil).WriteDir(context.Background(), dir, []string{"temp", "nope"}, at("00:00:00"), at("23:59:59"))
	if !errors.Is(err, metric.ErrUnknownMetric) {
		t.Fatalf("WriteDir() error = %v, want ErrUnknownMetric", err)
	}
	if len(paths) != 1 || paths[0] != filepath.Join(dir, "temp.csv") {
		t.Errorf("paths = %v, want only temp.csv", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "nope.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("nope.csv should not exist, stat error = %v", err)
	}
}

func TestWriteDir_NoDirectory(t *testing.T) {
	_, err := New(setupTestStore(t), nil).WriteDir(context.Background(), "", nil, at("00:00:00"), at("23:59:59"))
	if !errors.Is(err, ErrNoDirectory) {
		t.Errorf("WriteDir() error = %v, want ErrNoDirectory", err)
	}
}
