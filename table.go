package sheetpipe

import (
	"fmt"
	"reflect"
	"time"
)

// Kind is the scalar type shared by every value of a column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindBool:
		return "boolean"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsNumeric reports whether values of the kind take part in arithmetic.
// A null-only column is treated as numeric so it never blocks a sum.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat || k == KindNull
}

// Column is a named, typed sequence of values.
// Values hold nil, int64, float64, string, time.Time or bool.
type Column struct {
	Name   string
	Kind   Kind
	Values []interface{}
}

// NewColumn builds a column from Go values, inferring its kind.
func NewColumn(name string, values ...interface{}) *Column {
	kind, coerced := InferValues(values)
	return &Column{Name: name, Kind: kind, Values: coerced}
}

// Table is an ordered set of equal-length columns.
// Name is the sheet the table was read from or will be written to.
type Table struct {
	Name    string
	Columns []*Column
}

// NewTable validates the columns and assembles them into a table.
func NewTable(name string, columns ...*Column) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = true
		if len(col.Values) != len(columns[0].Values) {
			return nil, fmt.Errorf("column %q has %d values, want %d", col.Name, len(col.Values), len(columns[0].Values))
		}
	}
	return &Table{Name: name, Columns: columns}, nil
}

// FromRecords builds a table from a header and row-major Go values.
// Short rows are padded with nulls; long rows are an error.
func FromRecords(name string, header []string, rows [][]interface{}) (*Table, error) {
	columns := make([]*Column, len(header))
	for j, h := range header {
		values := make([]interface{}, len(rows))
		for i, row := range rows {
			if len(row) > len(header) {
				return nil, fmt.Errorf("row %d has %d values, header has %d", i, len(row), len(header))
			}
			if j < len(row) {
				values[i] = row[j]
			}
		}
		columns[j] = NewColumn(h, values...)
	}
	return NewTable(name, columns...)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for _, col := range t.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

// Rows returns the table in row-major order.
func (t *Table) Rows() [][]interface{} {
	rows := make([][]interface{}, t.NumRows())
	for i := range rows {
		row := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			row[j] = col.Values[i]
		}
		rows[i] = row
	}
	return rows
}

// Row returns a read view over row i.
func (t *Table) Row(i int) Row {
	return Row{table: t, index: i}
}

// Select returns a new table holding the named columns in the requested order.
func (t *Table) Select(names ...string) (*Table, error) {
	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		col := t.Column(name)
		if col == nil {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
		columns = append(columns, col.clone())
	}
	return NewTable(t.Name, columns...)
}

// WithName returns a clone of the table under another name.
func (t *Table) WithName(name string) *Table {
	c := t.Clone()
	c.Name = name
	return c
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	columns := make([]*Column, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = col.clone()
	}
	return &Table{Name: t.Name, Columns: columns}
}

// Equal reports whether both tables have the same column names, order and values.
// Kinds and table names are not compared; values compare by Go equality,
// and times by instant.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.Columns) != len(other.Columns) || t.NumRows() != other.NumRows() {
		return false
	}
	for j, col := range t.Columns {
		oc := other.Columns[j]
		if col.Name != oc.Name {
			return false
		}
		for i, v := range col.Values {
			if !valuesEqual(v, oc.Values[i]) {
				return false
			}
		}
	}
	return true
}

func (c *Column) clone() *Column {
	values := make([]interface{}, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

func valuesEqual(a, b interface{}) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// Concat stacks tables that share the same column names in the same order.
// When sourceColumn is set, a trailing text column records each row's origin table name.
func Concat(name, sourceColumn string, tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to concatenate")
	}
	header := tables[0].ColumnNames()
	for _, t := range tables[1:] {
		names := t.ColumnNames()
		if len(names) != len(header) {
			return nil, fmt.Errorf("%w: table %q has columns %v, want %v", ErrSchemaMismatch, t.Name, names, header)
		}
		for i := range names {
			if names[i] != header[i] {
				return nil, fmt.Errorf("%w: table %q has columns %v, want %v", ErrSchemaMismatch, t.Name, names, header)
			}
		}
	}

	columns := make([]*Column, 0, len(header)+1)
	for j, h := range header {
		var values []interface{}
		for _, t := range tables {
			values = append(values, t.Columns[j].Values...)
		}
		columns = append(columns, NewColumn(h, values...))
	}
	if sourceColumn != "" {
		var origins []interface{}
		for _, t := range tables {
			for i := 0; i < t.NumRows(); i++ {
				origins = append(origins, t.Name)
			}
		}
		columns = append(columns, NewColumn(sourceColumn, origins...))
	}
	return NewTable(name, columns...)
}
