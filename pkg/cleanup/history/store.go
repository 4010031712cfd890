package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Config.Driver.
const (
	DriverPure = "sqlite"
	DriverCGO  = "sqlite3"
)

// DefaultListLimit bounds List when Query.Limit is zero.
const DefaultListLimit = 50

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one recorded cleanup run.
type Run struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`

	// Target is the VM pattern or blob artifact type.
	Target      string `json:"target"`
	Environment string `json:"environment"`

	// Trigger is "cli", "schedule" or empty.
	Trigger string `json:"trigger,omitempty"`

	DryRun     bool      `json:"dry_run"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Matched        int   `json:"matched"`
	Candidates     int   `json:"candidates"`
	Deleted        int   `json:"deleted"`
	Failed         int   `json:"failed"`
	Deferred       int   `json:"deferred"`
	BytesReclaimed int64 `json:"bytes_reclaimed"`

	Error string `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Query filters List.
type Query struct {
	// Domain restricts results to "vm" or "blob". Empty means all.
	Domain string

	// Target restricts results to one pattern or artifact type.
	Target string

	// Since excludes runs started before it.
	Since time.Time

	// Limit caps the result. Default: 50
	Limit int
}

// Config configures a Store.
type Config struct {
	// Path is the database file path.
	Path string

	// Driver is DriverPure or DriverCGO.
	// Default: DriverPure
	Driver string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store records runs in SQLite.
type Store struct {
	db        *sql.DB
	path      string
	logger    *slog.Logger
	closeOnce sync.Once
}

// Open opens or creates the history database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("history database path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverPure
	}
	if cfg.Driver != DriverPure && cfg.Driver != DriverCGO {
		return nil, fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "cleanup.history"),
	}

	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("history store initialized", "path", cfg.Path, "driver", cfg.Driver)
	return s, nil
}

func (s *Store) initialize(busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Record stores run. Recording the same ID twice replaces the earlier row.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run ID is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Domain, run.Target, run.Environment, run.Trigger,
		boolToInt(run.DryRun), run.Outcome,
		run.StartedAt.UTC().UnixNano(), run.FinishedAt.UTC().UnixNano(),
		run.Matched, run.Candidates, run.Deleted, run.Failed, run.Deferred,
		run.BytesReclaimed, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}

	s.logger.Debug("run recorded", "run_id", run.ID, "domain", run.Domain, "outcome", run.Outcome)
	return nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List returns runs matching q, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if q.Domain != "" {
		where = append(where, "domain = ?")
		args = append(args, q.Domain)
	}
	if q.Target != "" {
		where = append(where, "target = ?")
		args = append(args, q.Target)
	}
	if !q.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, q.Since.UTC().UnixNano())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned run history", "deleted_count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Ping verifies the database is reachable. It serves as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		dryRun            int
		started, finished int64
	)
	err := row.Scan(
		&run.ID, &run.Domain, &run.Target, &run.Environment, &run.Trigger,
		&dryRun, &run.Outcome, &started, &finished,
		&run.Matched, &run.Candidates, &run.Deleted, &run.Failed, &run.Deferred,
		&run.BytesReclaimed, &run.Error,
	)
	if err != nil {
		return Run{}, err
	}
	run.DryRun = dryRun != 0
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
