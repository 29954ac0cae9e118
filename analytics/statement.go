package analytics

import (
	"fmt"
)

// Statement is a declarative query over stored tables.
type Statement struct {
	Name    string      // Used in errors and as the result table name
	From    string      // Base table
	Joins   []Join      // Equality joins applied in order
	Select  []Field     // Output columns; empty selects every column in scope
	Where   []Condition // Evaluated as AND conditions
	GroupBy []string    // Output aliases or columns
	Having  []Condition // AND conditions on groups; columns may be output aliases
	OrderBy []Order
	Limit   int
	Offset  int
}

// Join adds Table to the scope on Table.Key = LeftKey.
type Join struct {
	Table   string
	Key     string // Column of Table
	LeftKey string // Column already in scope; defaults to Key
	Left    bool   // Keep unmatched rows of the left side
}

// Field is one output column.
type Field struct {
	Expr Expr
	As   string // Output name; defaults to the column name for plain columns
}

// Condition represents a single filter condition
type Condition struct {
	Column   string      // Column name, optionally qualified as table.column
	Operator string      // ==, !=, >, >=, <, <=, in, between
	Value    interface{} // Scalar, Expr, nil, []interface{} for in, [2]interface{} for between
}

// Order sorts the result by an output alias or a column.
type Order struct {
	Column string
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) Order {
	return Order{Column: column}
}

// Desc orders by column descending.
func Desc(column string) Order {
	return Order{Column: column, Desc: true}
}

// As names an expression in the output.
func As(e Expr, name string) Field {
	return Field{Expr: e, As: name}
}

// ColumnField outputs a column under its own name.
func ColumnField(name string) Field {
	return Field{Expr: Col(name)}
}

var validOps = []string{"==", "!=", ">", ">=", "<", "<=", "in", "between"}

// ValidateConditions checks operators and operand shapes.
func ValidateConditions(conditions []Condition) error {
	for i, cond := range conditions {
		valid := false
		for _, op := range validOps {
			if cond.Operator == op {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid operator '%s' in condition %d", cond.Operator, i)
		}

		if cond.Operator == "in" {
			if _, ok := cond.Value.([]interface{}); !ok {
				return fmt.Errorf("operator 'in' requires []interface{} value in condition %d", i)
			}
		}

		if cond.Operator == "between" {
			if _, _, ok := bounds(cond.Value); !ok {
				return fmt.Errorf("operator 'between' requires [2]interface{} or []interface{} with 2 elements in condition %d", i)
			}
		}

		if cond.Value == nil && cond.Operator != "==" && cond.Operator != "!=" {
			return fmt.Errorf("operator '%s' cannot compare with null in condition %d", cond.Operator, i)
		}

		if cond.Column == "" {
			return fmt.Errorf("empty column name in condition %d", i)
		}
	}
	return nil
}

// ValidateStatement validates statement structure without consulting the store.
func ValidateStatement(st Statement) error {
	if st.From == "" {
		return fmt.Errorf("statement has no base table")
	}
	for i, j := range st.Joins {
		if j.Table == "" || j.Key == "" {
			return fmt.Errorf("join %d needs a table and a key", i)
		}
	}
	for i, f := range st.Select {
		if f.Expr == nil {
			return fmt.Errorf("field %d has no expression", i)
		}
	}
	if err := ValidateConditions(st.Where); err != nil {
		return err
	}
	if err := ValidateConditions(st.Having); err != nil {
		return fmt.Errorf("having: %w", err)
	}
	if st.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	if st.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	return nil
}

func bounds(v interface{}) (interface{}, interface{}, bool) {
	switch b := v.(type) {
	case [2]interface{}:
		return b[0], b[1], true
	case []interface{}:
		if len(b) != 2 {
			return nil, nil, false
		}
		return b[0], b[1], true
	default:
		return nil, nil, false
	}
}

func (st Statement) label() string {
	if st.Name != "" {
		return st.Name
	}
	return "select from " + st.From
}
