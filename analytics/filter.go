package analytics

import (
	"fmt"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
)

// Filter keeps the rows of a loaded table that satisfy every condition,
// without going through the store. A Col value compares against another
// column of the same row.
func Filter(t *sheetpipe.Table, conditions ...Condition) (*sheetpipe.Table, error) {
	if err := ValidateConditions(conditions); err != nil {
		return nil, err
	}
	for _, cond := range conditions {
		if t.Column(cond.Column) == nil {
			return nil, fmt.Errorf("%w: %q", sheetpipe.ErrColumnNotFound, cond.Column)
		}
		if e, ok := cond.Value.(Expr); ok {
			col, ok := e.(columnExpr)
			if !ok {
				return nil, fmt.Errorf("filter on %q: only column references are supported as values", cond.Column)
			}
			if t.Column(col.ref) == nil {
				return nil, fmt.Errorf("%w: %q", sheetpipe.ErrColumnNotFound, col.ref)
			}
		}
	}

	var keep []int
	for i := 0; i < t.NumRows(); i++ {
		if matches(t.Row(i), conditions) {
			keep = append(keep, i)
		}
	}

	columns := make([]*sheetpipe.Column, len(t.Columns))
	for j, col := range t.Columns {
		values := make([]interface{}, len(keep))
		for k, i := range keep {
			values[k] = col.Values[i]
		}
		columns[j] = &sheetpipe.Column{Name: col.Name, Kind: col.Kind, Values: values}
	}
	return sheetpipe.NewTable(t.Name, columns...)
}

// matches checks if a row matches all conditions
func matches(row sheetpipe.Row, conditions []Condition) bool {
	for _, cond := range conditions {
		if !evalCondition(row, cond) {
			return false
		}
	}
	return true
}

// evalCondition evaluates a single condition against a row
func evalCondition(row sheetpipe.Row, condition Condition) bool {
	value, _ := row.Value(condition.Column)
	target := condition.Value
	if col, ok := target.(columnExpr); ok {
		target, _ = row.Value(col.ref)
	}

	switch condition.Operator {
	case "==":
		return compareEqual(value, target)
	case "!=":
		return !compareEqual(value, target)
	case ">":
		c, ok := compareOrder(value, target)
		return ok && c > 0
	case ">=":
		c, ok := compareOrder(value, target)
		return ok && c >= 0
	case "<":
		c, ok := compareOrder(value, target)
		return ok && c < 0
	case "<=":
		c, ok := compareOrder(value, target)
		return ok && c <= 0
	case "in":
		return compareIn(value, target)
	case "between":
		return compareBetween(value, target)
	default:
		return false
	}
}

// compareEqual compares two values for equality
func compareEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	// Numbers compare across int and float
	if isNumeric(a) && isNumeric(b) {
		return toFloat64(a) == toFloat64(b)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := asTime(b)
		return ok && ta.Equal(tb)
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareOrder returns -1, 0 or 1 for a against b, and false when the values
// are null or of kinds that do not order against each other.
func compareOrder(a, b interface{}) (int, bool) {
	switch {
	case isNumeric(a) && isNumeric(b):
		x, y := toFloat64(a), toFloat64(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}

	if ta, ok := a.(time.Time); ok {
		tb, ok := asTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}

	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// asTime accepts a time or text in one of the date layouts.
func asTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseDate(x)
	}
	return time.Time{}, false
}

// compareIn checks if a is in the list b
func compareIn(a, b interface{}) bool {
	list, ok := b.([]interface{})
	if !ok {
		return false
	}

	for _, item := range list {
		if compareEqual(a, item) {
			return true
		}
	}
	return false
}

// compareBetween checks if a is between b[0] and b[1]
func compareBetween(a, b interface{}) bool {
	lo, hi, ok := bounds(b)
	if !ok {
		return false
	}
	low, ok := compareOrder(a, lo)
	if !ok {
		return false
	}
	high, ok := compareOrder(a, hi)
	return ok && low >= 0 && high <= 0
}

// isNumeric checks if a value is numeric
func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// toFloat64 converts a numeric value to float64
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}
