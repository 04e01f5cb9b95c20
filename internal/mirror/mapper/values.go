package mapper

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// rawCopy detaches the payload from the page buffer so the row owns its bytes.
func rawCopy(raw json.RawMessage) datatypes.JSON {
	return datatypes.JSON(append([]byte(nil), raw...))
}

// decodeObject parses a payload into a generic map, keeping numbers as
// json.Number so large ids survive without float truncation.
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func objString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func objStringPtr(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func objInt64(m map[string]any, key string) (int64, bool) {
	switch v := m[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := json.Number(v).Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func objInt64Ptr(m map[string]any, key string) *int64 {
	if n, ok := objInt64(m, key); ok {
		return &n
	}
	return nil
}

func objNested(m map[string]any, key string) map[string]any {
	if nested, ok := m[key].(map[string]any); ok {
		return nested
	}
	return nil
}

// objDecimal parses a monetary value to scale 2 with banker's rounding.
// Unparseable or absent values degrade to zero.
func objDecimal(m map[string]any, key string) decimal.Decimal {
	switch v := m[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err == nil {
			return d.RoundBank(2)
		}
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d.RoundBank(2)
		}
	}
	return decimal.Zero
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// objTime parses an ISO-8601 timestamp. A value without an explicit zone is
// treated as UTC. Absent or unparseable values map to nil.
func objTime(m map[string]any, key string) *time.Time {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
