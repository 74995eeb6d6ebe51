package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CategoryRecords is the ordered record list of one category.
type CategoryRecords struct {
	Category Category
	Records  []ClassifiedRecord
}

// Snapshot is the classified result of one poll cycle. Categories follow
// taxonomy declaration order. A Snapshot is never mutated after commit.
type Snapshot struct {
	CycleID    string
	TakenAt    time.Time
	Categories []CategoryRecords
}

// EmptySnapshot returns a snapshot with every taxonomy category present and no
// records, served before the first successful cycle.
func EmptySnapshot(t *Taxonomy) Snapshot {
	cats := make([]CategoryRecords, 0, len(t.specs))
	for _, spec := range t.specs {
		cats = append(cats, CategoryRecords{Category: spec.Name, Records: []ClassifiedRecord{}})
	}
	return Snapshot{Categories: cats}
}

// Records returns the records of category c, or nil when c is absent.
func (s Snapshot) Records(c Category) []ClassifiedRecord {
	records, _ := s.lookup(c)
	return records
}

// Len returns the total number of records across categories.
func (s Snapshot) Len() int {
	n := 0
	for _, cr := range s.Categories {
		n += len(cr.Records)
	}
	return n
}

func (s Snapshot) lookup(c Category) ([]ClassifiedRecord, bool) {
	for _, cr := range s.Categories {
		if cr.Category == c {
			return cr.Records, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the snapshot as {category: [record, ...]} keeping
// category order. Metadata travels separately (headers, archive columns).
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cr := range s.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(cr.Category))
		if err != nil {
			return nil, err
		}
		records := cr.Records
		if records == nil {
			records = []ClassifiedRecord{}
		}
		val, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("encode category %s: %w", cr.Category, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form, preserving key order.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("decode snapshot: expected object")
	}

	var cats []CategoryRecords
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode snapshot: unexpected token %v", tok)
		}
		var records []ClassifiedRecord
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("decode category %s: %w", name, err)
		}
		if records == nil {
			records = []ClassifiedRecord{}
		}
		cats = append(cats, CategoryRecords{Category: Category(name), Records: records})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.Categories = cats
	return nil
}
