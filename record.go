package sheetpipe

import (
	"fmt"
	"strconv"
	"time"
)

// Row is a read view over one row of a Table.
type Row struct {
	table *Table
	index int
}

// Index returns the zero-based row position.
func (r Row) Index() int {
	return r.index
}

// Value returns the raw value of the column and whether the column exists.
func (r Row) Value(col string) (interface{}, bool) {
	c := r.table.Column(col)
	if c == nil || r.index < 0 || r.index >= len(c.Values) {
		return nil, false
	}
	return c.Values[r.index], true
}

// Map returns the row as column name to value.
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.table.Columns))
	for _, c := range r.table.Columns {
		m[c.Name] = c.Values[r.index]
	}
	return m
}

// GetAsString returns the value as string or defaultValue if not found
func (r Row) GetAsString(col string, defaultValue string) string {
	v, ok := r.Value(col)
	if !ok || v == nil {
		return defaultValue
	}

	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return FormatValue(val)
	}
}

// GetAsInt64 returns the value as int64 or defaultValue if not found
func (r Row) GetAsInt64(col string, defaultValue int64) int64 {
	v, ok := r.Value(col)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found
func (r Row) GetAsFloat64(col string, defaultValue float64) float64 {
	v, ok := r.Value(col)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetAsBool returns the value as bool or defaultValue if not found
func (r Row) GetAsBool(col string, defaultValue bool) bool {
	v, ok := r.Value(col)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "TRUE" || val == "1"
	case int64:
		return val != 0
	case float64:
		return val != 0
	}
	return defaultValue
}

// GetAsTime returns the value as time.Time or defaultValue if not found
func (r Row) GetAsTime(col string, defaultValue time.Time) time.Time {
	v, ok := r.Value(col)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
	}
	return defaultValue
}

func (r Row) String() string {
	return fmt.Sprintf("row %d of %q", r.index, r.table.Name)
}
