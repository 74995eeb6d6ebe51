// Package pipeline runs the fetch, parse, classify and commit cycle on a
// schedule and keeps the snapshot store current.
package pipeline

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

// Renderer opens browser-like sessions able to render the source page.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// Session renders pages until closed. A session serves exactly one cycle.
type Session interface {
	// Render loads url, waits up to timeout for readySelector, and returns the
	// visible table. It fails with domain.ErrRenderTimeout when the wait expires.
	Render(ctx context.Context, url, readySelector string, timeout time.Duration) (domain.Table, error)
	Close() error
}

// SnapshotStore receives committed snapshots.
type SnapshotStore interface {
	Write(snap domain.Snapshot, raw []domain.RawRecord)
	HasSnapshot() bool
}

// Mirror is a best-effort sink notified after every commit.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, snap domain.Snapshot, raw []domain.RawRecord) error
}

// SnapshotSource is a persisted snapshot form used to warm the store at startup.
type SnapshotSource interface {
	Name() string
	Latest(ctx context.Context) (domain.Snapshot, bool, error)
}

// Options configures a Poller.
type Options struct {
	SourceURL       string
	ReadySelector   string
	PageLoadTimeout time.Duration
	Interval        time.Duration
	RetryDelay      time.Duration
	MaxAttempts     int

	// Clock drives retry waits and scheduling, and stamps snapshot TakenAt.
	// Defaults to the real clock.
	Clock clockwork.Clock
}

// sleepWithContext waits d on clock. It returns false if ctx ends first.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
