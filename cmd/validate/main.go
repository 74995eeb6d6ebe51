// Command validate checks the consistency of a pair of snapshot dumps written
// by the file mirror: the classified JSON snapshot and the raw CSV it was built
// from. It verifies taxonomy coverage and record shapes, then re-classifies
// the raw rows and compares the result with the JSON dump.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -json sensor_data.json \
//	  -csv sensor_data.csv \
//	  -taxonomy config/taxonomy.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/flood-sensor-etl/internal/config"
	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/store"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonPath := flag.String("json", "sensor_data.json", "path to the classified snapshot dump")
	csvPath := flag.String("csv", "sensor_data.csv", "path to the raw CSV dump")
	taxonomyPath := flag.String("taxonomy", "", "taxonomy YAML file (default: built-in taxonomy)")
	flag.Parse()

	if *jsonPath == "" || *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *jsonPath, *csvPath, *taxonomyPath); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, jsonPath, csvPath, taxonomyPath string) int {
	fmt.Fprintln(out, "=== Sensor Snapshot Validation ===")
	fmt.Fprintln(out)

	tax, err := config.LoadTaxonomy(taxonomyPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load taxonomy: %v\n", err)
		return 1
	}

	snap, err := loadSnapshot(jsonPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load snapshot dump: %v\n", err)
		return 1
	}

	table, err := loadTable(csvPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load raw dump: %v\n", err)
		return 1
	}

	raw, parsePhase := validateRawDump(table)
	phases := []*phase{
		validateTaxonomy(tax, snap),
		parsePhase,
		validateReclassification(tax, raw, snap),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d raw rows, %d classified across %d categories\n",
		len(raw), snap.Len(), len(snap.Categories))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadSnapshot(path string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}

func loadTable(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()
	return store.ReadTable(f)
}

// ── Phase 1: taxonomy coverage and shape ──

func validateTaxonomy(tax *domain.Taxonomy, snap domain.Snapshot) *phase {
	p := &phase{name: "Taxonomy coverage and shape"}
	for _, err := range tax.Verify(snap) {
		p.errorf("%v", err)
	}
	return p
}

// ── Phase 2: raw dump ──

func validateRawDump(table domain.Table) ([]domain.RawRecord, *phase) {
	p := &phase{name: "Raw dump parses"}
	raw, err := domain.Parse(table)
	if err != nil {
		p.errorf("%v", err)
		return nil, p
	}
	for i, r := range raw {
		if r.Current == "" {
			p.errorf("row %d (%s): empty CURRENT", i+1, r.Name)
		}
	}
	return raw, p
}

// ── Phase 3: re-classification parity ──

// Defaulted is not serialized, so it is ignored when comparing against the dump.
var recordOpts = cmpopts.IgnoreFields(domain.ClassifiedRecord{}, "Defaulted")

func validateReclassification(tax *domain.Taxonomy, raw []domain.RawRecord, snap domain.Snapshot) *phase {
	p := &phase{name: "Re-classification matches snapshot"}
	if raw == nil {
		p.errorf("no raw rows to classify")
		return p
	}

	want, _ := domain.NewClassifier(tax).Classify(slices.Values(raw))
	for _, cat := range want.Categories {
		got := snap.Records(cat.Category)
		if len(got) != len(cat.Records) {
			p.errorf("%s: %d records in dump, %d after re-classification",
				cat.Category, len(got), len(cat.Records))
			continue
		}
		for i := range cat.Records {
			if diff := cmp.Diff(cat.Records[i], got[i], recordOpts); diff != "" {
				p.errorf("%s[%d] %s: (-classified +dump)\n%s", cat.Category, i, cat.Records[i].Name, diff)
			}
		}
	}
	return p
}
