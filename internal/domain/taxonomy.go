package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Category identifies a sensor category, e.g. "rain_gauge".
type Category string

// Categories of the default iRISE UP taxonomy.
const (
	RainGauge          Category = "rain_gauge"
	FloodSensors       Category = "flood_sensors"
	StreetFloodSensors Category = "street_flood_sensors"
	FloodRiskIndex     Category = "flood_risk_index"
	EarthquakeSensors  Category = "earthquake_sensors"
)

// Convention describes how a category reports its current reading.
type Convention string

const (
	// Numeric readings are parsed to a float ("12.5", "12.5 mm").
	Numeric Convention = "numeric"
	// UnitSuffixed readings keep their text with the unit attached ("0.35m").
	UnitSuffixed Convention = "unit_suffixed"
)

// Field is an optional record field a category shape may carry.
type Field string

const (
	FieldNormalLevel Field = "normal_level"
	FieldDescription Field = "description"
	FieldObservedAt  Field = "obs_time"
)

// Shape is the set of fields records of a category carry beyond name and current.
type Shape struct {
	Convention Convention
	Fields     []Field
}

// Has reports whether the shape carries f.
func (s Shape) Has(f Field) bool {
	return slices.Contains(s.Fields, f)
}

// Detailed reports whether the shape carries a normal level or description,
// the street-flood style as opposed to a bare value.
func (s Shape) Detailed() bool {
	return s.Has(FieldNormalLevel) || s.Has(FieldDescription)
}

// CategorySpec declares one category: its shape and member sensors.
//
// Counterpart optionally names a category of the other reading style that
// shares identifiers with this one, like the flood risk index mirroring the
// street-flood gauges. Paired categories win the classification tie-break over
// unpaired candidates of the same style.
type CategorySpec struct {
	Name        Category
	Shape       Shape
	Sensors     []string
	Counterpart Category
}

// Taxonomy is the immutable registry of categories and their sensors.
// Identifier lookups are case-insensitive.
type Taxonomy struct {
	specs []CategorySpec
	// index maps a folded identifier to the positions of its categories in specs.
	index map[string][]int
	// canonical maps, per category position, a folded identifier to its declared spelling.
	canonical []map[string]string
}

// NewTaxonomy validates specs and builds the lookup indexes. Declaration order
// is preserved and drives iteration and tie-breaking.
func NewTaxonomy(specs []CategorySpec) (*Taxonomy, error) {
	if len(specs) == 0 {
		return nil, errors.New("taxonomy has no categories")
	}

	t := &Taxonomy{
		specs:     make([]CategorySpec, 0, len(specs)),
		index:     make(map[string][]int),
		canonical: make([]map[string]string, 0, len(specs)),
	}

	names := make(map[Category]bool, len(specs))
	for i, spec := range specs {
		if err := validateSpec(spec); err != nil {
			return nil, err
		}
		if names[spec.Name] {
			return nil, fmt.Errorf("duplicate category %q", spec.Name)
		}
		names[spec.Name] = true

		members := make(map[string]string, len(spec.Sensors))
		for _, id := range spec.Sensors {
			id = strings.TrimSpace(id)
			if id == "" {
				return nil, fmt.Errorf("category %q: empty sensor identifier", spec.Name)
			}
			key := foldID(id)
			if _, dup := members[key]; dup {
				return nil, fmt.Errorf("category %q: duplicate sensor %q", spec.Name, id)
			}
			members[key] = id
			t.index[key] = append(t.index[key], i)
		}

		t.specs = append(t.specs, CategorySpec{
			Name:        spec.Name,
			Shape:       Shape{Convention: spec.Shape.Convention, Fields: slices.Clone(spec.Shape.Fields)},
			Sensors:     trimAll(spec.Sensors),
			Counterpart: spec.Counterpart,
		})
		t.canonical = append(t.canonical, members)
	}

	for _, spec := range t.specs {
		if err := t.validateCounterpart(spec); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Taxonomy) validateCounterpart(spec CategorySpec) error {
	if spec.Counterpart == "" {
		return nil
	}
	other, ok := t.Category(spec.Counterpart)
	switch {
	case !ok:
		return fmt.Errorf("category %q: unknown counterpart %q", spec.Name, spec.Counterpart)
	case other.Name == spec.Name:
		return fmt.Errorf("category %q: counterpart of itself", spec.Name)
	case other.Shape.Detailed() == spec.Shape.Detailed():
		return fmt.Errorf("category %q: counterpart %q has the same reading style", spec.Name, spec.Counterpart)
	}
	return nil
}

// paired reports whether the category at pos is a counterpart of, or has its
// counterpart among, the categories at positions.
func (t *Taxonomy) paired(pos int, positions []int) bool {
	spec := t.specs[pos]
	for _, other := range positions {
		if other == pos {
			continue
		}
		if spec.Counterpart == t.specs[other].Name || t.specs[other].Counterpart == spec.Name {
			return true
		}
	}
	return false
}

func validateSpec(spec CategorySpec) error {
	if spec.Name == "" {
		return errors.New("category with empty name")
	}
	switch spec.Shape.Convention {
	case Numeric, UnitSuffixed:
	default:
		return fmt.Errorf("category %q: unknown reading convention %q", spec.Name, spec.Shape.Convention)
	}
	for _, f := range spec.Shape.Fields {
		switch f {
		case FieldNormalLevel, FieldDescription, FieldObservedAt:
		default:
			return fmt.Errorf("category %q: unknown field %q", spec.Name, f)
		}
	}
	return nil
}

// Categories returns the category specs in declaration order.
func (t *Taxonomy) Categories() []CategorySpec {
	out := make([]CategorySpec, len(t.specs))
	for i, s := range t.specs {
		out[i] = CategorySpec{
			Name:        s.Name,
			Shape:       Shape{Convention: s.Shape.Convention, Fields: slices.Clone(s.Shape.Fields)},
			Sensors:     slices.Clone(s.Sensors),
			Counterpart: s.Counterpart,
		}
	}
	return out
}

// Category looks up a category spec by name.
func (t *Taxonomy) Category(name Category) (CategorySpec, bool) {
	for _, s := range t.Categories() {
		if s.Name == name {
			return s, true
		}
	}
	return CategorySpec{}, false
}

// CategoriesOf returns every category containing id, in declaration order.
func (t *Taxonomy) CategoriesOf(id string) []Category {
	positions := t.index[foldID(id)]
	out := make([]Category, len(positions))
	for i, p := range positions {
		out[i] = t.specs[p].Name
	}
	return out
}

// Canonical returns the declared spelling of id within category c.
func (t *Taxonomy) Canonical(c Category, id string) (string, bool) {
	for i, s := range t.specs {
		if s.Name == c {
			name, ok := t.canonical[i][foldID(id)]
			return name, ok
		}
	}
	return "", false
}

// Verify checks s against the taxonomy: every category present in declaration
// order, exactly one record per declared sensor under its declared spelling,
// no undeclared sensors, and record fields matching the category shape. It returns every violation found.
func (t *Taxonomy) Verify(s Snapshot) []error {
	var errs []error
	if len(s.Categories) != len(t.specs) {
		errs = append(errs, fmt.Errorf("snapshot has %d categories, taxonomy declares %d", len(s.Categories), len(t.specs)))
	}

	for i, spec := range t.specs {
		records, ok := s.lookup(spec.Name)
		if !ok {
			errs = append(errs, fmt.Errorf("category %q missing", spec.Name))
			continue
		}
		if i < len(s.Categories) && s.Categories[i].Category != spec.Name {
			errs = append(errs, fmt.Errorf("category %q out of order at position %d", spec.Name, i))
		}

		counts := make(map[string]int, len(records))
		for _, rec := range records {
			name, declared := t.Canonical(spec.Name, rec.Name)
			if !declared {
				errs = append(errs, fmt.Errorf("category %q: undeclared sensor %q", spec.Name, rec.Name))
				continue
			}
			if name != rec.Name {
				errs = append(errs, fmt.Errorf("category %q: sensor %q not in declared spelling %q", spec.Name, rec.Name, name))
			}
			counts[foldID(rec.Name)]++
			errs = append(errs, checkShape(spec, rec)...)
		}
		for _, id := range spec.Sensors {
			if n := counts[foldID(id)]; n != 1 {
				errs = append(errs, fmt.Errorf("category %q: sensor %q has %d records, want 1", spec.Name, id, n))
			}
		}
	}
	return errs
}

func checkShape(spec CategorySpec, rec ClassifiedRecord) []error {
	var errs []error
	check := func(f Field, v *string) {
		if spec.Shape.Has(f) != (v != nil) {
			errs = append(errs, fmt.Errorf("category %q: sensor %q: field %s does not match shape", spec.Name, rec.Name, f))
		}
	}
	check(FieldNormalLevel, rec.NormalLevel)
	check(FieldDescription, rec.Description)
	check(FieldObservedAt, rec.ObservedAt)

	if _, numeric := rec.Current.Float(); spec.Shape.Convention == UnitSuffixed && numeric {
		errs = append(errs, fmt.Errorf("category %q: sensor %q: numeric reading in unit-suffixed category", spec.Name, rec.Name))
	}
	return errs
}

func foldID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func trimAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strings.TrimSpace(id)
	}
	return out
}
