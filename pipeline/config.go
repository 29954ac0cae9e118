package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/analytics"
	"github.com/ideamans/go-sheetpipe/sample"
)

// ReportFile is the report workbook DefaultConfig writes.
const ReportFile = "automated_report.xlsx"

// SourceSpec says which workbooks feed a store table.
type SourceSpec struct {
	Table string `validate:"required"`
	// Path may be a glob; every match must share the same columns
	Path  string `validate:"required"`
	Sheet string // Sheet to read; empty reads the first sheet

	Columns []string
	// SourceColumn, when set, adds a column holding each row's file name
	SourceColumn string
}

// Config describes one run of the pipeline.
type Config struct {
	Sources []SourceSpec `validate:"required,min=1,dive"`

	// StorePath is the store database file; empty keeps the store in memory
	StorePath  string
	ReportPath string               `validate:"required"`
	Mode       sheetpipe.ExportMode `validate:"oneof=0 1"`

	Reports  []analytics.Report `validate:"required,min=1"`
	Analyses []analytics.Report
}

var validate = validator.New()

// Validate checks the struct tags, then that table and sheet names are unique.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	tables := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if tables[src.Table] {
			return fmt.Errorf("invalid pipeline config: table %q is loaded twice", src.Table)
		}
		tables[src.Table] = true
	}

	sheets := make(map[string]bool, len(c.Reports))
	for i, r := range c.Reports {
		if r.Sheet == "" {
			return fmt.Errorf("invalid pipeline config: report %d has no sheet name", i)
		}
		if sheets[r.Sheet] {
			return fmt.Errorf("invalid pipeline config: %w: report sheet %q", sheetpipe.ErrSheetNameConflict, r.Sheet)
		}
		sheets[r.Sheet] = true
	}
	return nil
}

// DefaultConfig wires the sample workbooks in dir to the standard reports.
func DefaultConfig(dir string) *Config {
	return &Config{
		Sources: []SourceSpec{
			{Table: analytics.TableSales, Path: filepath.Join(dir, sample.SalesFile)},
			{Table: analytics.TableInventory, Path: filepath.Join(dir, sample.InventoryFile)},
			{Table: analytics.TableCustomers, Path: filepath.Join(dir, sample.CustomersFile)},
		},
		ReportPath: filepath.Join(dir, ReportFile),
		Mode:       sheetpipe.ExportOverwrite,
		Reports:    analytics.StandardReports(),
		Analyses:   analytics.Analyses(),
	}
}
