package sheetpipe

import "context"

// Source reads tables out of a workbook.
type Source interface {
	// Load returns the selected sheets keyed by sheet name
	Load(ctx context.Context, sel Selector) (map[string]*Table, error)
}

// Sink writes tables into a workbook.
type Sink interface {
	// Export writes the tables as sheets according to mode
	Export(ctx context.Context, tables []*Table, mode ExportMode) error

	// UpdateSheet replaces or appends one sheet, leaving every other sheet untouched
	UpdateSheet(ctx context.Context, sheet string, table *Table) error
}

// Adapter is a workbook backend that can be both read and written.
type Adapter interface {
	Source
	Sink
}
