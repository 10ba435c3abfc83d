package metadatastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

const busyRetries = 5

// SQLiteStore provides SQLite-based persistence for snapshots and training jobs
type SQLiteStore struct {
	db *sql.DB
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Writes are serialized by SQLite anyway
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// In-memory databases report "memory" or "delete" instead of "wal"
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to check journal mode")
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		db.Close()
		return nil, errors.Errorf("unexpected journal mode: got %s", journalMode)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a write that failed with SQLITE_BUSY, backing off
// 10ms, 20ms, 40ms and so on.
func (s *SQLiteStore) retryOnBusy(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < busyRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "SQLITE_BUSY") {
			return err
		}
		backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(err, "operation failed after %d retries", busyRetries)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		label TEXT,
		kind TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		state TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_kind ON snapshots(kind);

	CREATE TABLE IF NOT EXISTS training_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		priority INTEGER NOT NULL,
		submitted_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_training_jobs_status ON training_jobs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot, replacing any snapshot with the same id
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot state")
	}
	query := `
		INSERT OR REPLACE INTO snapshots (id, label, kind, created_at, state)
		VALUES (?, ?, ?, ?, ?)
	`
	err = s.retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query,
			snapshot.ID,
			snapshot.Label,
			string(snapshot.Trigger),
			snapshot.CreatedAt.UnixNano(),
			string(state),
		)
		return err
	})
	return errors.Wrap(err, "failed to save snapshot")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner, withState bool) (*models.Snapshot, error) {
	var (
		snapshot models.Snapshot
		label    sql.NullString
		trigger  string
		created  int64
		state    string
	)
	dest := []any{&snapshot.ID, &label, &trigger, &created}
	if withState {
		dest = append(dest, &state)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	snapshot.Label = label.String
	snapshot.Trigger = models.SnapshotTrigger(trigger)
	snapshot.CreatedAt = time.Unix(0, created).UTC()
	if withState {
		if err := json.Unmarshal([]byte(state), &snapshot.State); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal snapshot state")
		}
	}
	return &snapshot, nil
}

// GetSnapshot retrieves a snapshot with its state
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	query := `SELECT id, label, kind, created_at, state FROM snapshots WHERE id = ?`
	snapshot, err := scanSnapshot(s.db.QueryRowContext(ctx, query, id), true)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(models.ErrNotFound, "snapshot %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get snapshot")
	}
	return snapshot, nil
}

// LatestSnapshot retrieves the most recent snapshot with its state
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	query := `SELECT id, label, kind, created_at, state FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`
	snapshot, err := scanSnapshot(s.db.QueryRowContext(ctx, query), true)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(models.ErrNotFound, "no snapshots stored")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest snapshot")
	}
	return snapshot, nil
}

// ListSnapshots lists snapshot metadata, newest first
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]*models.Snapshot, error) {
	query := `SELECT id, label, kind, created_at FROM snapshots ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshots")
	}
	defer rows.Close()

	snapshots := make([]*models.Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan snapshot")
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, errors.Wrap(rows.Err(), "failed to list snapshots")
}

// DeleteSnapshot deletes a snapshot
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	var affected int64
	err := s.retryOnBusy(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete snapshot")
	}
	if affected == 0 {
		return errors.Wrapf(models.ErrNotFound, "snapshot %s", id)
	}
	return nil
}

// PruneSnapshots removes all but the newest keep snapshots of a trigger
func (s *SQLiteStore) PruneSnapshots(ctx context.Context, trigger models.SnapshotTrigger, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.Wrapf(models.ErrInvalidArgument, "keep must not be negative, got %d", keep)
	}
	query := `
		DELETE FROM snapshots WHERE kind = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE kind = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`
	var affected int64
	err := s.retryOnBusy(ctx, func() error {
		result, err := s.db.ExecContext(ctx, query, string(trigger), string(trigger), keep)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune snapshots")
	}
	return int(affected), nil
}

// SaveTrainingJob stores a training job, replacing any job with the same id
func (s *SQLiteStore) SaveTrainingJob(ctx context.Context, job *models.TrainingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "failed to marshal training job")
	}
	query := `
		INSERT OR REPLACE INTO training_jobs (id, status, priority, submitted_at, data)
		VALUES (?, ?, ?, ?, ?)
	`
	err = s.retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query,
			job.ID,
			string(job.Status),
			job.Priority,
			job.SubmittedAt.UnixNano(),
			string(data),
		)
		return err
	})
	return errors.Wrap(err, "failed to save training job")
}

// GetTrainingJob retrieves a training job by ID
func (s *SQLiteStore) GetTrainingJob(ctx context.Context, id string) (*models.TrainingJob, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM training_jobs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(models.ErrNotFound, "training job %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get training job")
	}

	var job models.TrainingJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal training job")
	}
	return &job, nil
}

// ListTrainingJobs lists all training jobs, newest first
func (s *SQLiteStore) ListTrainingJobs(ctx context.Context) ([]*models.TrainingJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM training_jobs ORDER BY submitted_at DESC, rowid DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list training jobs")
	}
	defer rows.Close()

	jobs := make([]*models.TrainingJob, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var job models.TrainingJob
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
