package excel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/gologger"
	"github.com/xuri/excelize/v2"
)

var logger = gologger.NewLogger()

// Adapter implements the sheetpipe.Adapter interface for one Excel workbook
type Adapter struct {
	config *Config
	mu     sync.RWMutex

	// replace moves the serialized temp file over the destination.
	replace func(tmpPath, dest string) error
}

var _ sheetpipe.Adapter = (*Adapter)(nil)

// New creates a new Excel adapter with the given configuration
func New(config *Config) (*Adapter, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create a copy of config to avoid external modifications
	configCopy := *config

	return &Adapter{
		config:  &configCopy,
		replace: os.Rename,
	}, nil
}

// Path returns the workbook path the adapter is bound to.
func (a *Adapter) Path() string {
	return a.config.FilePath
}

// SheetNames returns the sheet names of the workbook in order.
func (a *Adapter) SheetNames(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := a.open("load", "")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// Load reads the selected sheets into tables keyed by sheet name
func (a *Adapter) Load(ctx context.Context, sel sheetpipe.Selector) (map[string]*sheetpipe.Table, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	// Check if context is cancelled
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := a.open("load", sel.Sheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	if sel.Sheet != "" {
		name, err := locateSheet(f, sel.Sheet)
		if err != nil {
			return nil, sheetpipe.NewSheetError("load", a.config.FilePath, sel.Sheet, err)
		}
		names = []string{name}
	}

	reader := newCellReader(f)
	tables := make(map[string]*sheetpipe.Table, len(names))
	for _, name := range names {
		rows, err := reader.rows(name)
		if err != nil {
			return nil, sheetpipe.NewSheetError("load", a.config.FilePath, name, fmt.Errorf("failed to get rows: %w", err))
		}

		table, err := sheetpipe.FromCells(name, rows)
		if err != nil {
			return nil, sheetpipe.NewSheetError("load", a.config.FilePath, name, err)
		}
		if table, err = sel.Apply(table); err != nil {
			return nil, sheetpipe.NewSheetError("load", a.config.FilePath, name, err)
		}
		tables[name] = table

		logger.Debug().
			Str("path", a.config.FilePath).
			Str("sheet", name).
			Int("rows", table.NumRows()).
			Int("columns", table.NumColumns()).
			Msg("loaded sheet")
	}

	return tables, nil
}

// open loads the full workbook model, mapping codec failures onto the error taxonomy.
func (a *Adapter) open(op, sheet string) (*excelize.File, error) {
	f, err := excelize.OpenFile(a.config.FilePath)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, sheetpipe.NewSheetError(op, a.config.FilePath, sheet, sheetpipe.ErrSourceNotFound)
		case errors.Is(err, fs.ErrPermission):
			return nil, sheetpipe.NewSheetError(op, a.config.FilePath, sheet, fmt.Errorf("failed to open Excel file: %w", err))
		default:
			return nil, sheetpipe.NewSheetError(op, a.config.FilePath, sheet, fmt.Errorf("%w: %v", ErrInvalidFileFormat, err))
		}
	}
	return f, nil
}

// locateSheet resolves a sheet name to its name as stored in the workbook.
func locateSheet(f *excelize.File, sheet string) (string, error) {
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to get sheet index: %w", err)
	}
	if index == -1 {
		return "", sheetpipe.ErrSheetNotFound
	}
	return f.GetSheetName(index), nil
}
