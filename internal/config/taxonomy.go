package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomy []byte

type taxonomyFile struct {
	Categories []taxonomyCategory `yaml:"categories"`
}

type taxonomyCategory struct {
	Name        string   `yaml:"name"`
	Convention  string   `yaml:"convention"`
	Fields      []string `yaml:"fields"`
	Counterpart string   `yaml:"counterpart"`
	Sensors     []string `yaml:"sensors"`
}

// LoadTaxonomy reads the sensor registry from path, or the built-in iRISE UP
// registry when path is empty.
func LoadTaxonomy(path string) (*domain.Taxonomy, error) {
	data := defaultTaxonomy
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read TAXONOMY_FILE: %w", err)
		}
		data = b
	}
	return ParseTaxonomy(data)
}

// DefaultTaxonomy returns the built-in registry.
func DefaultTaxonomy() (*domain.Taxonomy, error) {
	return ParseTaxonomy(defaultTaxonomy)
}

// ParseTaxonomy decodes a YAML registry document.
func ParseTaxonomy(data []byte) (*domain.Taxonomy, error) {
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}

	specs := make([]domain.CategorySpec, 0, len(f.Categories))
	for _, c := range f.Categories {
		fields := make([]domain.Field, 0, len(c.Fields))
		for _, name := range c.Fields {
			fields = append(fields, domain.Field(name))
		}
		convention := domain.Convention(c.Convention)
		if convention == "" {
			convention = domain.Numeric
		}
		specs = append(specs, domain.CategorySpec{
			Name:        domain.Category(c.Name),
			Shape:       domain.Shape{Convention: convention, Fields: fields},
			Sensors:     c.Sensors,
			Counterpart: domain.Category(c.Counterpart),
		})
	}

	tax, err := domain.NewTaxonomy(specs)
	if err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}
	return tax, nil
}
