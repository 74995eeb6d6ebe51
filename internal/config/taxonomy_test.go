package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

func TestDefaultTaxonomy(t *testing.T) {
	tax, err := DefaultTaxonomy()
	require.NoError(t, err)

	cats := tax.Categories()
	require.Len(t, cats, 5)

	want := []struct {
		name    domain.Category
		sensors int
	}{
		{domain.RainGauge, 22},
		{domain.FloodSensors, 5},
		{domain.StreetFloodSensors, 13},
		{domain.FloodRiskIndex, 13},
		{domain.EarthquakeSensors, 2},
	}
	for i, w := range want {
		assert.Equal(t, w.name, cats[i].Name)
		assert.Len(t, cats[i].Sensors, w.sensors, string(w.name))
	}

	street, ok := tax.Category(domain.StreetFloodSensors)
	require.True(t, ok)
	assert.Equal(t, domain.UnitSuffixed, street.Shape.Convention)
	assert.True(t, street.Shape.Detailed())

	risk, ok := tax.Category(domain.FloodRiskIndex)
	require.True(t, ok)
	assert.Equal(t, domain.StreetFloodSensors, risk.Counterpart)

	assert.Equal(t, []domain.Category{domain.RainGauge, domain.StreetFloodSensors, domain.FloodRiskIndex}, tax.CategoriesOf("Phil-Am"))
}

func TestLoadTaxonomy_EmptyPathUsesDefault(t *testing.T) {
	tax, err := LoadTaxonomy("")
	require.NoError(t, err)
	assert.Len(t, tax.Categories(), 5)
}

func TestLoadTaxonomy_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	doc := `
categories:
  - name: rain_gauge
    sensors: [QCPU, Libis]
  - name: street_flood_sensors
    convention: unit_suffixed
    fields: [normal_level, description, obs_time]
    sensors: [Libis]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)

	rg, ok := tax.Category(domain.RainGauge)
	require.True(t, ok)
	assert.Equal(t, domain.Numeric, rg.Shape.Convention)

	street, ok := tax.Category(domain.StreetFloodSensors)
	require.True(t, ok)
	assert.True(t, street.Shape.Has(domain.FieldObservedAt))
}

func TestLoadTaxonomy_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTaxonomy(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TAXONOMY_FILE")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := ParseTaxonomy([]byte("categories: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse taxonomy")
	})

	t.Run("invalid registry", func(t *testing.T) {
		_, err := ParseTaxonomy([]byte("categories:\n  - name: x\n    convention: metric\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown reading convention")
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := ParseTaxonomy(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no categories")
	})
}

func TestDefaultTaxonomy_SharedStationRouting(t *testing.T) {
	tax, err := DefaultTaxonomy()
	require.NoError(t, err)

	snap, stats := domain.NewClassifier(tax).Classify(domain.Records(domain.Table{Rows: [][]string{
		{"Libis", "1:05 PM", "N/A", "3.5", "N/A"},
		{"Libis", "1:05 PM", "N/A", "2", "N/A"},
	}}))

	assert.Equal(t, 2, stats.Observed)
	assert.Zero(t, stats.Duplicates)

	find := func(c domain.Category) domain.ClassifiedRecord {
		for _, rec := range snap.Records(c) {
			if rec.Name == "Libis" {
				return rec
			}
		}
		t.Fatalf("Libis missing from %s", c)
		return domain.ClassifiedRecord{}
	}
	assert.Equal(t, domain.NumericReading(3.5), find(domain.FloodRiskIndex).Current)
	assert.Equal(t, domain.NumericReading(2), find(domain.RainGauge).Current)
	assert.Empty(t, tax.Verify(snap))
}
