// Package tablefile serves a sensor table from a local CSV file in place of
// the live dashboard, for offline development and demos.
package tablefile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/pipeline"
	"github.com/couchcryptid/flood-sensor-etl/internal/store"
)

// Renderer reads the fixture at path on every render, so edits to the file
// show up in the next cycle.
type Renderer struct {
	path string
}

func NewRenderer(path string) *Renderer {
	return &Renderer{path: path}
}

func (r *Renderer) Open(ctx context.Context) (pipeline.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{path: r.path}, nil
}

type session struct {
	path string
}

// Render ignores url, readySelector and timeout.
func (s *session) Render(ctx context.Context, _, _ string, _ time.Duration) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open table fixture: %w", err)
	}
	defer f.Close()

	table, err := store.ReadTable(f)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read table fixture %s: %w", s.path, err)
	}
	return table, nil
}

func (s *session) Close() error { return nil }
