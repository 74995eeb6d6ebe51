package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NotAvailable is the placeholder for fields the source table did not provide.
const NotAvailable = "N/A"

// Table is the visible cell text of the rendered sensor table.
// Header is empty when the page has no <thead>.
type Table struct {
	Header []string
	Rows   [][]string
}

// RawRecord is one table row before classification. Every field is the trimmed
// cell text, or NotAvailable when the column is absent or empty.
type RawRecord struct {
	Name        string
	ObservedAt  string
	NormalLevel string
	Current     string
	Description string
}

// Reading is the current value of a sensor: numeric for bare-value categories,
// text for unit-suffixed readings or numbers that could not be parsed.
type Reading struct {
	value   float64
	text    string
	numeric bool
}

// NumericReading returns a numeric reading.
func NumericReading(v float64) Reading {
	return Reading{value: v, numeric: true}
}

// TextReading returns a text reading.
func TextReading(s string) Reading {
	return Reading{text: s}
}

// leadingNumberRe captures the number at the start of a reading, e.g. "12.5 mm" -> 12.5.
var leadingNumberRe = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)`)

// ParseNumericReading returns the leading number of s, or a text reading of
// the trimmed input when it does not start with one.
func ParseNumericReading(s string) Reading {
	s = strings.TrimSpace(s)
	if m := leadingNumberRe.FindString(s); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return NumericReading(v)
		}
	}
	return TextReading(s)
}

// Float returns the numeric value and whether the reading is numeric.
func (r Reading) Float() (float64, bool) {
	return r.value, r.numeric
}

func (r Reading) String() string {
	if r.numeric {
		return strconv.FormatFloat(r.value, 'f', -1, 64)
	}
	return r.text
}

// Equal lets go-cmp compare readings without exported fields.
func (r Reading) Equal(other Reading) bool {
	return r == other
}

func (r Reading) MarshalJSON() ([]byte, error) {
	if r.numeric {
		s := strconv.FormatFloat(r.value, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			// Keep "0.0" rather than "0" to match the float readings upstream.
			s += ".0"
		}
		return []byte(s), nil
	}
	return json.Marshal(r.text)
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode text reading: %w", err)
		}
		*r = TextReading(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode numeric reading: %w", err)
	}
	*r = NumericReading(v)
	return nil
}

// ClassifiedRecord is a sensor reading in the shape of its category. Optional
// fields are nil when the category does not carry them.
type ClassifiedRecord struct {
	Name        string  `json:"SENSOR NAME"`
	Current     Reading `json:"CURRENT"`
	NormalLevel *string `json:"NORMAL LEVEL,omitempty"`
	Description *string `json:"DESCRIPTION,omitempty"`
	ObservedAt  *string `json:"OBS TIME,omitempty"`

	// Defaulted marks a record synthesized because the sensor was missing from
	// the source table.
	Defaulted bool `json:"-"`
}
