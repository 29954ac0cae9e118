package sheetpipe

import "fmt"

// Selector picks the sheets and columns a Source returns.
type Selector struct {
	Sheet   string   // Sheet to read; empty reads every sheet
	Columns []string // Column subset applied after reading; empty keeps all
}

// AllSheets selects every sheet of a workbook.
func AllSheets() Selector {
	return Selector{}
}

// SheetNamed selects a single sheet.
func SheetNamed(name string) Selector {
	return Selector{Sheet: name}
}

// WithColumns returns a copy of the selector restricted to the given columns.
func (s Selector) WithColumns(columns ...string) Selector {
	s.Columns = append([]string(nil), columns...)
	return s
}

// Apply restricts a loaded table to the selector's columns.
func (s Selector) Apply(t *Table) (*Table, error) {
	if len(s.Columns) == 0 {
		return t, nil
	}
	return t.Select(s.Columns...)
}

// ExportMode controls how a Sink treats sheets already at the destination.
type ExportMode int

const (
	// ExportOverwrite replaces the destination with exactly the given tables
	ExportOverwrite ExportMode = iota
	// ExportAppend adds the tables as new sheets and fails on name conflicts
	ExportAppend
)

func (m ExportMode) String() string {
	switch m {
	case ExportOverwrite:
		return "overwrite"
	case ExportAppend:
		return "append"
	default:
		return fmt.Sprintf("ExportMode(%d)", int(m))
	}
}

// ParseExportMode parses "overwrite" or "append".
func ParseExportMode(s string) (ExportMode, error) {
	switch s {
	case "overwrite", "":
		return ExportOverwrite, nil
	case "append":
		return ExportAppend, nil
	default:
		return 0, fmt.Errorf("invalid export mode: %s (must be overwrite or append)", s)
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
