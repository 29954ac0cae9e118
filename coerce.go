package sheetpipe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayouts are the text forms recognized as dates when reading cells.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// InferStrings coerces raw cell text into the narrowest kind every non-empty
// cell agrees on. Empty cells become nulls. A column whose cells disagree
// stays text, holding the raw strings.
func InferStrings(raw []string) (Kind, []interface{}) {
	parsed := make([]interface{}, len(raw))
	kind := KindNull
	for i, s := range raw {
		if s == "" {
			continue
		}
		v, k := parseCell(s)
		parsed[i] = v
		kind = widen(kind, k)
		if kind == KindText {
			break
		}
	}

	values := make([]interface{}, len(raw))
	for i, s := range raw {
		if s == "" {
			continue
		}
		switch kind {
		case KindText:
			values[i] = s
		case KindFloat:
			values[i] = toFloat64(parsed[i])
		default:
			values[i] = parsed[i]
		}
	}
	return kind, values
}

// InferValues normalizes Go values and picks the column kind. Integers and
// floats mix into float; any other disagreement turns the column into text.
func InferValues(raw []interface{}) (Kind, []interface{}) {
	values := make([]interface{}, len(raw))
	kind := KindNull
	for i, v := range raw {
		nv, k := normalizeValue(v)
		values[i] = nv
		kind = widen(kind, k)
	}

	switch kind {
	case KindFloat:
		for i, v := range values {
			if v != nil {
				values[i] = toFloat64(v)
			}
		}
	case KindText:
		for i, v := range values {
			if v != nil {
				values[i] = FormatValue(v)
			}
		}
	}
	return kind, values
}

// FormatValue renders a value the way it is written into text cells.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		if isMidnight(val) {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// HasClock reports whether any date in values carries a time of day.
func HasClock(values []interface{}) bool {
	for _, v := range values {
		if t, ok := v.(time.Time); ok && !isMidnight(t) {
			return true
		}
	}
	return false
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func parseCell(s string) (interface{}, Kind) {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i, KindInt
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, KindFloat
	}
	switch trimmed {
	case "TRUE", "true", "True":
		return true, KindBool
	case "FALSE", "false", "False":
		return false, KindBool
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, KindDate
		}
	}
	return s, KindText
}

// widen merges the kind seen so far with the kind of the next value.
func widen(current, next Kind) Kind {
	switch {
	case next == KindNull:
		return current
	case current == KindNull:
		return next
	case current == next:
		return current
	case (current == KindInt && next == KindFloat) || (current == KindFloat && next == KindInt):
		return KindFloat
	default:
		return KindText
	}
}

func normalizeValue(v interface{}) (interface{}, Kind) {
	switch val := v.(type) {
	case nil:
		return nil, KindNull
	case int:
		return int64(val), KindInt
	case int8:
		return int64(val), KindInt
	case int16:
		return int64(val), KindInt
	case int32:
		return int64(val), KindInt
	case int64:
		return val, KindInt
	case uint:
		return normalizeUint(uint64(val))
	case uint8:
		return int64(val), KindInt
	case uint16:
		return int64(val), KindInt
	case uint32:
		return int64(val), KindInt
	case uint64:
		return normalizeUint(val)
	case float32:
		return float64(val), KindFloat
	case float64:
		return val, KindFloat
	case string:
		return val, KindText
	case []byte:
		return string(val), KindText
	case bool:
		return val, KindBool
	case time.Time:
		return val, KindDate
	case *time.Time:
		if val == nil {
			return nil, KindNull
		}
		return *val, KindDate
	default:
		return fmt.Sprintf("%v", val), KindText
	}
}

// normalizeUint maps values above the int64 range to floats.
func normalizeUint(v uint64) (interface{}, Kind) {
	if v > math.MaxInt64 {
		return float64(v), KindFloat
	}
	return int64(v), KindInt
}

// toFloat64 converts a numeric value to float64
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}
