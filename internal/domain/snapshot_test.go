package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumericReading(t *testing.T) {
	tests := []struct {
		in   string
		want Reading
	}{
		{"3.5", NumericReading(3.5)},
		{" 12.5 mm ", NumericReading(12.5)},
		{"0", NumericReading(0)},
		{"-1.25", NumericReading(-1.25)},
		{".5", NumericReading(0.5)},
		{"N/A", TextReading(NotAvailable)},
		{"offline", TextReading("offline")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumericReading(tt.in))
		})
	}
}

func TestReading_JSON(t *testing.T) {
	tests := []struct {
		name string
		r    Reading
		want string
	}{
		{"integer float keeps decimal", NumericReading(0), `0.0`},
		{"fraction", NumericReading(12.5), `12.5`},
		{"text", TextReading("1.2m"), `"1.2m"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.r)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Reading
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.r, back)
		})
	}
}

func TestSnapshot_JSONShape(t *testing.T) {
	tax := testTaxonomy(t)
	snap, _ := NewClassifier(tax).Classify(Records(Table{Rows: [][]string{
		{"Phil-Am", "10:00", "0.5m", "1.2m", "Gutter deep"},
		{"QCPU", "10:00", "", "3.5", ""},
	}}))

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var generic map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Len(t, generic, 4)

	rg := generic[string(RainGauge)][0]
	assert.Equal(t, map[string]any{"SENSOR NAME": "QCPU", "CURRENT": 3.5}, rg)

	street := generic[string(StreetFloodSensors)][0]
	assert.Equal(t, map[string]any{
		"SENSOR NAME":  "Phil-Am",
		"CURRENT":      "1.2m",
		"NORMAL LEVEL": "0.5m",
		"DESCRIPTION":  "Gutter deep",
	}, street)
}

func TestSnapshot_JSONPreservesOrder(t *testing.T) {
	tax := testTaxonomy(t)
	snap, _ := NewClassifier(tax).Classify(Records(Table{Rows: [][]string{
		{"Libis", "", "", "2", ""},
	}}))

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Categories, len(snap.Categories))
	for i := range snap.Categories {
		assert.Equal(t, snap.Categories[i].Category, back.Categories[i].Category)
		assert.Len(t, back.Categories[i].Records, len(snap.Categories[i].Records))
	}
	assert.Equal(t, testLibis, back.Records(FloodRiskIndex)[0].Name)
	assert.Empty(t, tax.Verify(back))
}

func TestEmptySnapshot(t *testing.T) {
	tax := testTaxonomy(t)
	snap := EmptySnapshot(tax)

	require.Len(t, snap.Categories, 4)
	assert.Equal(t, 0, snap.Len())

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rain_gauge":[],"flood_sensors":[],"street_flood_sensors":[],"flood_risk_index":[]}`, string(data))
}

func TestSnapshot_UnmarshalRejectsArray(t *testing.T) {
	var s Snapshot
	err := json.Unmarshal([]byte(`[1,2]`), &s)
	require.Error(t, err)
}
