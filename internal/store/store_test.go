package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/store"
)

func testTaxonomy(t *testing.T) *domain.Taxonomy {
	t.Helper()
	tax, err := domain.NewTaxonomy([]domain.CategorySpec{
		{Name: domain.RainGauge, Shape: domain.Shape{Convention: domain.Numeric}, Sensors: []string{"QCPU", "Libis"}},
		{Name: domain.StreetFloodSensors, Shape: domain.Shape{
			Convention: domain.UnitSuffixed,
			Fields:     []domain.Field{domain.FieldNormalLevel, domain.FieldDescription},
		}, Sensors: []string{"Libis"}},
	})
	require.NoError(t, err)
	return tax
}

func testRaw() []domain.RawRecord {
	return []domain.RawRecord{
		{Name: "QCPU", ObservedAt: "10:05 AM", NormalLevel: "N/A", Current: "3.5", Description: "N/A"},
		{Name: "Libis", ObservedAt: "10:05 AM", NormalLevel: "0.5m", Current: "1.2m", Description: "Knee, deep"},
	}
}

func classify(t *testing.T, tax *domain.Taxonomy, raw []domain.RawRecord) domain.Snapshot {
	t.Helper()
	snap, _ := domain.NewClassifier(tax).Classify(func(yield func(domain.RawRecord) bool) {
		for _, r := range raw {
			if !yield(r) {
				return
			}
		}
	})
	snap.CycleID = "cycle-1"
	return snap
}

func TestStore_ColdStart(t *testing.T) {
	s := store.New(testTaxonomy(t))

	snap, ok := s.Read()
	assert.False(t, ok)
	assert.False(t, s.HasSnapshot())
	require.Len(t, snap.Categories, 2)
	assert.Empty(t, snap.Categories[0].Records)

	_, ok = s.Raw()
	assert.False(t, ok)
}

func TestStore_WriteRead(t *testing.T) {
	tax := testTaxonomy(t)
	s := store.New(tax)
	raw := testRaw()
	snap := classify(t, tax, raw)

	s.Write(snap, raw)

	got, ok := s.Read()
	require.True(t, ok)
	assert.True(t, s.HasSnapshot())
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}

	gotRaw, ok := s.Raw()
	require.True(t, ok)
	assert.Equal(t, raw, gotRaw)
}

func TestStore_RecoveredSnapshotHasNoRaw(t *testing.T) {
	tax := testTaxonomy(t)
	s := store.New(tax)
	s.Write(classify(t, tax, testRaw()), nil)

	assert.True(t, s.HasSnapshot())
	_, ok := s.Raw()
	assert.False(t, ok)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	tax := testTaxonomy(t)
	s := store.New(tax)
	snap := classify(t, tax, testRaw())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				got, _ := s.Read()
				// Either the empty or the full snapshot, never a mix.
				n := got.Len()
				assert.True(t, n == 0 || n == snap.Len(), "torn read: %d records", n)
			}
		}()
	}
	for range 50 {
		s.Write(snap, nil)
	}
	wg.Wait()
}

func TestWriteRawCSV_ReadTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, store.WriteRawCSV(&buf, testRaw()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SENSOR NAME,OBS TIME,NORMAL LEVEL,CURRENT,DESCRIPTION", lines[0])
	assert.Equal(t, `Libis,10:05 AM,0.5m,1.2m,"Knee, deep"`, lines[2])

	table, err := store.ReadTable(&buf)
	require.NoError(t, err)
	assert.Equal(t, store.RawHeader, table.Header)

	parsed, err := domain.Parse(table)
	require.NoError(t, err)
	assert.Equal(t, testRaw(), parsed)
}

func TestReadTable_Empty(t *testing.T) {
	table, err := store.ReadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Header)
	assert.Empty(t, table.Rows)
}

func TestFileMirror(t *testing.T) {
	tax := testTaxonomy(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "sensor_data.json")
	csvPath := filepath.Join(dir, "out", "sensor_data.csv")
	m := store.NewFileMirror(jsonPath, csvPath)
	assert.Equal(t, "file", m.Name())

	_, ok, err := m.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	raw := testRaw()
	snap := classify(t, tax, raw)
	require.NoError(t, m.Mirror(context.Background(), snap, raw))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var generic map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "1.2m", generic["street_flood_sensors"][0]["CURRENT"])

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "SENSOR NAME,"))

	loaded, ok, err := m.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, loaded.TakenAt.IsZero())
	assert.Empty(t, tax.Verify(loaded))
	assert.Equal(t, snap.Records(domain.StreetFloodSensors)[0].Current, loaded.Records(domain.StreetFloodSensors)[0].Current)

	entries, err := os.ReadDir(filepath.Dir(jsonPath))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files left behind")
}

func TestFileMirror_SkipsRawWithoutRows(t *testing.T) {
	tax := testTaxonomy(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "raw.csv")
	m := store.NewFileMirror("", csvPath)

	require.NoError(t, m.Mirror(context.Background(), classify(t, tax, testRaw()), nil))

	_, err := os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFileMirror_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_data.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, _, err := store.NewFileMirror(path, "").Latest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode snapshot dump")
}
