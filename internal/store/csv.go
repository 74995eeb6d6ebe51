package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

// RawHeader is the column order of the raw CSV dump.
var RawHeader = []string{"SENSOR NAME", "OBS TIME", "NORMAL LEVEL", "CURRENT", "DESCRIPTION"}

// WriteRawCSV writes raw records with RawHeader as the first line.
func WriteRawCSV(w io.Writer, raw []domain.RawRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RawHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range raw {
		if err := cw.Write([]string{r.Name, r.ObservedAt, r.NormalLevel, r.Current, r.Description}); err != nil {
			return fmt.Errorf("write csv row %q: %w", r.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a CSV file whose first line is a header into a Table.
// Rows may have fewer cells than the header.
func ReadTable(r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("read csv header: %w", err)
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, row)
	}
	return domain.Table{Header: header, Rows: rows}, nil
}
