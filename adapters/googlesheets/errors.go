package googlesheets

import "errors"

var (
	// ErrMissingSpreadsheetID is returned when spreadsheet ID is not specified
	ErrMissingSpreadsheetID = errors.New("spreadsheet ID is required")

	// ErrMissingSheetName is returned when a table has no sheet name
	ErrMissingSheetName = errors.New("sheet name is required")

	// ErrNoTables is returned when an export is given nothing to write
	ErrNoTables = errors.New("no tables to export")
)
