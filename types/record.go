package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one source entity instance as returned by the source system.
// No schema is enforced; every getter falls back to a typed zero value.
type Record map[string]any

func (record Record) Has(key string) bool {
	value, ok := record[key]
	return ok && value != nil
}

func (record Record) String(key string) string {
	switch value := record[key].(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

func (record Record) Bool(key string) bool {
	switch value := record[key].(type) {
	case bool:
		return value
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		return err == nil && parsed
	default:
		return false
	}
}

func (record Record) Float(key string) float64 {
	switch value := record[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// Timestamp returns an integral epoch-millisecond value. Strings, fractions,
// non-positive numbers and values outside int64 are rejected.
func (record Record) Timestamp(key string) (int64, bool) {
	var millis int64
	switch value := record[key].(type) {
	case int:
		millis = int64(value)
	case int64:
		millis = value
	case float64:
		if value != math.Trunc(value) || value <= 0 || value >= math.MaxInt64 {
			return 0, false
		}
		millis = int64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, false
		}
		millis = parsed
	default:
		return 0, false
	}
	if millis <= 0 {
		return 0, false
	}
	return millis, true
}

// Records returns the nested list of mappings stored under key. Elements that
// are not mappings are dropped.
func (record Record) Records(key string) []Record {
	var items []any
	switch value := record[key].(type) {
	case []any:
		items = value
	case []map[string]any:
		records := make([]Record, 0, len(value))
		for _, item := range value {
			records = append(records, Record(item))
		}
		return records
	case []Record:
		return value
	default:
		return nil
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		switch nested := item.(type) {
		case map[string]any:
			records = append(records, Record(nested))
		case Record:
			records = append(records, nested)
		}
	}
	return records
}
