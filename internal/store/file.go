package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

// FileMirror writes the raw rows as CSV and the classified snapshot as JSON
// after every commit. Either path may be empty to skip that dump.
type FileMirror struct {
	jsonPath string
	csvPath  string
}

// NewFileMirror returns a FileMirror writing to the given paths.
func NewFileMirror(jsonPath, csvPath string) *FileMirror {
	return &FileMirror{jsonPath: jsonPath, csvPath: csvPath}
}

func (m *FileMirror) Name() string { return "file" }

// Mirror writes both dumps. Each file is replaced atomically.
func (m *FileMirror) Mirror(_ context.Context, snap domain.Snapshot, raw []domain.RawRecord) error {
	var errs []error
	if m.csvPath != "" && raw != nil {
		var buf bytes.Buffer
		if err := WriteRawCSV(&buf, raw); err != nil {
			errs = append(errs, err)
		} else if err := writeFileAtomic(m.csvPath, buf.Bytes()); err != nil {
			errs = append(errs, fmt.Errorf("write raw dump: %w", err))
		}
	}
	if m.jsonPath != "" {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			errs = append(errs, fmt.Errorf("encode snapshot: %w", err))
		} else if err := writeFileAtomic(m.jsonPath, data); err != nil {
			errs = append(errs, fmt.Errorf("write snapshot dump: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Latest reads the JSON dump back. ok is false when no dump exists.
// The file modification time stands in for the lost TakenAt.
func (m *FileMirror) Latest(_ context.Context) (snap domain.Snapshot, ok bool, err error) {
	if m.jsonPath == "" {
		return domain.Snapshot{}, false, nil
	}
	data, err := os.ReadFile(m.jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("read snapshot dump: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode snapshot dump %s: %w", m.jsonPath, err)
	}
	if info, err := os.Stat(m.jsonPath); err == nil {
		snap.TakenAt = info.ModTime().UTC()
	}
	return snap, true, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
