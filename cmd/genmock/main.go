// Command genmock writes a sensor table fixture for the file renderer. Rows are
// generated from the taxonomy with seeded random readings, so the same seed
// always produces the same table. The fixture is classified with the domain
// package before writing and the resulting counts are logged.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/sensor_table.csv \
//	  -seed 42 -drop 0.1 -unknown 2
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/flood-sensor-etl/internal/config"
	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the CSV table fixture")
	taxonomyPath := flag.String("taxonomy", "", "taxonomy YAML file (default: built-in taxonomy)")
	seed := flag.Uint64("seed", 1, "random seed")
	drop := flag.Float64("drop", 0, "fraction of sensors left out of the table, in [0, 1)")
	unknown := flag.Int("unknown", 0, "number of extra rows with identifiers outside the taxonomy")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return errors.New("missing required flag: -out")
	}
	if *drop < 0 || *drop >= 1 {
		return fmt.Errorf("-drop must be in [0, 1), got %v", *drop)
	}

	tax, err := config.LoadTaxonomy(*taxonomyPath)
	if err != nil {
		return err
	}

	rows := generate(tax, rand.New(rand.NewPCG(*seed, *seed)), *drop, *unknown)
	log.Printf("generated %d rows", len(rows))

	_, stats := domain.NewClassifier(tax).Classify(slices.Values(rows))
	log.Printf("classified: %d observed, %d defaulted, %d unknown, %d duplicates",
		stats.Observed, stats.Defaulted, stats.Unknown, stats.Duplicates)

	if err := writeCSV(*out, rows); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)
	return nil
}

// generate emits one row per declared sensor in taxonomy order, skipping a
// drop fraction of them, followed by unknown extra rows.
func generate(tax *domain.Taxonomy, rng *rand.Rand, drop float64, unknown int) []domain.RawRecord {
	var rows []domain.RawRecord
	for _, spec := range tax.Categories() {
		for _, id := range spec.Sensors {
			if rng.Float64() < drop {
				continue
			}
			rows = append(rows, mockRow(spec, id, rng))
		}
	}
	for i := range unknown {
		rows = append(rows, domain.RawRecord{
			Name:        fmt.Sprintf("Unlisted Station %d", i+1),
			ObservedAt:  observedAt(rng),
			NormalLevel: domain.NotAvailable,
			Current:     fmt.Sprintf("%.1f", rng.Float64()*20),
			Description: domain.NotAvailable,
		})
	}
	return rows
}

func mockRow(spec domain.CategorySpec, id string, rng *rand.Rand) domain.RawRecord {
	row := domain.RawRecord{
		Name:        id,
		ObservedAt:  observedAt(rng),
		NormalLevel: domain.NotAvailable,
		Description: domain.NotAvailable,
	}
	switch {
	case spec.Shape.Convention == domain.UnitSuffixed:
		level := rng.Float64() * 1.5
		row.Current = fmt.Sprintf("%.2fm", level)
		row.NormalLevel = "0.00m"
		row.Description = floodDescription(level)
	case spec.Shape.Detailed():
		row.Current = fmt.Sprintf("%.2f", rng.Float64()*15)
		row.NormalLevel = fmt.Sprintf("%.2f", 10+rng.Float64()*2)
	default:
		row.Current = fmt.Sprintf("%.1f", rng.Float64()*30)
	}
	return row
}

func observedAt(rng *rand.Rand) string {
	return fmt.Sprintf("%d:%02d PM", 1+rng.IntN(12), rng.IntN(60))
}

func floodDescription(level float64) string {
	switch {
	case level < 0.2:
		return "No flood"
	case level < 0.5:
		return "Gutter deep"
	case level < 1.0:
		return "Knee deep"
	default:
		return "Waist deep"
	}
}

func writeCSV(path string, rows []domain.RawRecord) error {
	var buf bytes.Buffer
	if err := store.WriteRawCSV(&buf, rows); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
