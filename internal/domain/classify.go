package domain

import (
	"iter"
	"strings"
)

// Default readings for sensors missing from the source table.
const (
	DefaultNumericReading = 0.0
	DefaultUnitReading    = "0.0m"
)

// ClassifyStats summarizes one classification run.
type ClassifyStats struct {
	Observed   int // records placed from source rows
	Defaulted  int // records synthesized for missing sensors
	Unknown    int // rows whose identifier is not in the taxonomy
	Duplicates int // rows dropped because the sensor was already placed
}

// Classifier assigns raw records to taxonomy categories.
type Classifier struct {
	taxonomy *Taxonomy
}

// NewClassifier returns a Classifier over t.
func NewClassifier(t *Taxonomy) *Classifier {
	return &Classifier{taxonomy: t}
}

// Taxonomy returns the registry the classifier was built with.
func (c *Classifier) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Classify builds a complete Snapshot from records. Observed records keep
// source order within their category and are followed by defaults for every
// declared sensor that did not appear. CycleID and TakenAt are left for the
// caller to set. The result depends only on the input rows.
func (c *Classifier) Classify(records iter.Seq[RawRecord]) (Snapshot, ClassifyStats) {
	t := c.taxonomy
	var stats ClassifyStats

	out := make([][]ClassifiedRecord, len(t.specs))
	seen := make([]map[string]bool, len(t.specs))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}

	for raw := range records {
		key := foldID(raw.Name)
		candidates := t.index[key]
		if len(candidates) == 0 {
			stats.Unknown++
			continue
		}
		pos, ok := c.choose(candidates, raw.Current, func(p int) bool { return seen[p][key] })
		if !ok {
			stats.Duplicates++
			continue
		}
		seen[pos][key] = true
		out[pos] = append(out[pos], shapeRecord(t.specs[pos], t.canonical[pos][key], raw))
		stats.Observed++
	}

	snap := Snapshot{Categories: make([]CategoryRecords, len(t.specs))}
	for i, spec := range t.specs {
		for _, id := range spec.Sensors {
			if seen[i][foldID(id)] {
				continue
			}
			out[i] = append(out[i], defaultRecord(spec, id))
			stats.Defaulted++
		}
		records := out[i]
		if records == nil {
			records = []ClassifiedRecord{}
		}
		snap.Categories[i] = CategoryRecords{Category: spec.Name, Records: records}
	}
	return snap, stats
}

// choose picks one category position among candidates. A reading containing
// "m" goes to a detailed (street-flood style) category; any other reading to a
// bare-value category. Within the preferred kind, categories paired through a
// counterpart come first, then declaration order, and a category that already
// holds the sensor this run is passed over. When the preferred kind is not
// among the candidates they are tried in declaration order. ok is false when
// every eligible category already holds the sensor.
func (c *Classifier) choose(candidates []int, current string, taken func(int) bool) (pos int, ok bool) {
	for _, p := range c.preference(candidates, current) {
		if !taken(p) {
			return p, true
		}
	}
	return 0, false
}

func (c *Classifier) preference(candidates []int, current string) []int {
	if len(candidates) == 1 {
		return candidates
	}
	t := c.taxonomy
	wantDetailed := strings.Contains(current, "m")

	var paired, rest []int
	for _, p := range candidates {
		if t.specs[p].Shape.Detailed() != wantDetailed {
			continue
		}
		if t.paired(p, candidates) {
			paired = append(paired, p)
		} else {
			rest = append(rest, p)
		}
	}
	if len(paired)+len(rest) == 0 {
		return candidates
	}
	return append(paired, rest...)
}

func shapeRecord(spec CategorySpec, name string, raw RawRecord) ClassifiedRecord {
	rec := ClassifiedRecord{Name: name}
	switch spec.Shape.Convention {
	case UnitSuffixed:
		rec.Current = TextReading(strings.TrimSpace(raw.Current))
	default:
		rec.Current = ParseNumericReading(raw.Current)
	}
	if spec.Shape.Has(FieldNormalLevel) {
		rec.NormalLevel = ptr(orNotAvailable(raw.NormalLevel))
	}
	if spec.Shape.Has(FieldDescription) {
		rec.Description = ptr(orNotAvailable(raw.Description))
	}
	if spec.Shape.Has(FieldObservedAt) {
		rec.ObservedAt = ptr(orNotAvailable(raw.ObservedAt))
	}
	return rec
}

func defaultRecord(spec CategorySpec, name string) ClassifiedRecord {
	rec := ClassifiedRecord{Name: name, Defaulted: true}
	if spec.Shape.Convention == UnitSuffixed {
		rec.Current = TextReading(DefaultUnitReading)
	} else {
		rec.Current = NumericReading(DefaultNumericReading)
	}
	if spec.Shape.Has(FieldNormalLevel) {
		rec.NormalLevel = ptr(NotAvailable)
	}
	if spec.Shape.Has(FieldDescription) {
		rec.Description = ptr(NotAvailable)
	}
	if spec.Shape.Has(FieldObservedAt) {
		rec.ObservedAt = ptr(NotAvailable)
	}
	return rec
}

func orNotAvailable(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return NotAvailable
	}
	return s
}

func ptr(s string) *string { return &s }
