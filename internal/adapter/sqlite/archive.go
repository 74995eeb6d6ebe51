// Package sqlite archives committed snapshots in a local SQLite database so
// the service can serve the last snapshot immediately after a restart.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

// Archive appends every committed snapshot and prunes entries older than maxAge.
type Archive struct {
	logger *slog.Logger
	db     *sql.DB
	maxAge time.Duration
}

// NewArchive opens (creating if needed) the database at path.
// A maxAge of zero disables pruning.
func NewArchive(logger *slog.Logger, path string, maxAge time.Duration) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck,gosec // ping error takes precedence
		return nil, fmt.Errorf("%w: ping %s: %w", domain.ErrStoreUnavailable, path, err)
	}

	a := &Archive{logger: logger, db: db, maxAge: maxAge}
	if err := a.migrate(); err != nil {
		db.Close() //nolint:errcheck,gosec // migrate error takes precedence
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			cycle_id      TEXT PRIMARY KEY,
			taken_at      INTEGER NOT NULL,
			record_count  INTEGER NOT NULL,
			snapshot_json TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	`)
	return err
}

func (a *Archive) Name() string { return "sqlite" }

// Mirror stores snap and prunes expired entries.
func (a *Archive) Mirror(ctx context.Context, snap domain.Snapshot, _ []domain.RawRecord) error {
	if err := a.Store(ctx, snap); err != nil {
		return err
	}
	if a.maxAge > 0 {
		return a.Cleanup(ctx, a.maxAge)
	}
	return nil
}

// Store appends snap. A snapshot with an already archived cycle id replaces it.
func (a *Archive) Store(ctx context.Context, snap domain.Snapshot) error {
	if snap.CycleID == "" {
		return errors.New("archive snapshot: missing cycle id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (cycle_id, taken_at, record_count, snapshot_json)
		VALUES (?, ?, ?, ?)
	`, snap.CycleID, snap.TakenAt.UnixNano(), snap.Len(), string(data))
	if err != nil {
		return fmt.Errorf("%w: insert snapshot %s: %w", domain.ErrStoreUnavailable, snap.CycleID, err)
	}

	a.logger.Debug("snapshot archived", "cycle_id", snap.CycleID, "records", snap.Len())
	return nil
}

// Latest returns the most recently taken snapshot. ok is false when the
// archive is empty.
func (a *Archive) Latest(ctx context.Context) (snap domain.Snapshot, ok bool, err error) {
	var (
		cycleID string
		takenAt int64
		data    string
	)
	err = a.db.QueryRowContext(ctx, `
		SELECT cycle_id, taken_at, snapshot_json
		FROM snapshots
		ORDER BY taken_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&cycleID, &takenAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("%w: query latest snapshot: %w", domain.ErrStoreUnavailable, err)
	}

	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode archived snapshot %s: %w", cycleID, err)
	}
	snap.CycleID = cycleID
	snap.TakenAt = time.Unix(0, takenAt).UTC()
	return snap, true, nil
}

// Cleanup deletes snapshots taken more than maxAge ago. The most recent
// snapshot is always kept for recovery.
func (a *Archive) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).UnixNano()

	result, err := a.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE taken_at < ?
		  AND cycle_id <> (SELECT cycle_id FROM snapshots ORDER BY taken_at DESC, rowid DESC LIMIT 1)
	`, cutoff)
	if err != nil {
		return fmt.Errorf("%w: cleanup snapshots: %w", domain.ErrStoreUnavailable, err)
	}

	if deleted, _ := result.RowsAffected(); deleted > 0 {
		a.logger.Info("pruned archived snapshots", "deleted", deleted)
	}
	return nil
}

// Count returns the number of archived snapshots.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count snapshots: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
