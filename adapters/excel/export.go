package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/xuri/excelize/v2"
)

const (
	dateFormat     = "yyyy-mm-dd"
	dateTimeFormat = "yyyy-mm-dd hh:mm:ss"
	generalFormat  = "General"
)

// Export writes the tables into the workbook as sheets.
//
// ExportOverwrite builds a new workbook holding exactly the given tables and
// replaces whatever was at the path. ExportAppend adds them after the existing
// sheets and fails with sheetpipe.ErrSheetNameConflict before writing anything
// if one of the names is already taken. Both commit atomically.
func (a *Adapter) Export(ctx context.Context, tables []*sheetpipe.Table, mode sheetpipe.ExportMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Check if context is cancelled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(tables) == 0 {
		return sheetpipe.NewSheetError("export", a.config.FilePath, "", ErrNoTables)
	}
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return sheetpipe.NewSheetError("export", a.config.FilePath, "", ErrMissingSheetName)
		}
		if seen[t.Name] {
			return sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, fmt.Errorf("%w: duplicate table name", sheetpipe.ErrSheetNameConflict))
		}
		seen[t.Name] = true
	}

	var (
		f   *excelize.File
		err error
	)
	switch mode {
	case sheetpipe.ExportOverwrite:
		f, err = a.newWorkbook(tables)
	case sheetpipe.ExportAppend:
		f, err = a.appendWorkbook(tables)
	default:
		return fmt.Errorf("unsupported export mode: %v", mode)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.commit(f); err != nil {
		return sheetpipe.NewSheetError("export", a.config.FilePath, "", err)
	}

	logger.Info().
		Str("path", a.config.FilePath).
		Str("mode", mode.String()).
		Int("sheets", len(tables)).
		Msg("exported workbook")
	return nil
}

func (a *Adapter) newWorkbook(tables []*sheetpipe.Table) (*excelize.File, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(a.config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, sheetpipe.NewSheetError("export", a.config.FilePath, "", fmt.Errorf("%w: failed to create directory: %v", sheetpipe.ErrWriteFailure, err))
	}

	f := excelize.NewFile()
	w := newSheetWriter(f)
	for i, t := range tables {
		if i == 0 {
			// Reuse the default sheet so the workbook holds only our tables
			if err := f.SetSheetName(f.GetSheetName(0), t.Name); err != nil {
				f.Close()
				return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			f.Close()
			return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, fmt.Errorf("failed to create sheet: %w", err))
		}
		if err := w.write(t.Name, t); err != nil {
			f.Close()
			return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, err)
		}
	}
	return f, nil
}

func (a *Adapter) appendWorkbook(tables []*sheetpipe.Table) (*excelize.File, error) {
	f, err := a.open("export", "")
	if err != nil {
		return nil, err
	}

	for _, t := range tables {
		index, err := f.GetSheetIndex(t.Name)
		if err != nil {
			f.Close()
			return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, err)
		}
		if index != -1 {
			f.Close()
			return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, sheetpipe.ErrSheetNameConflict)
		}
	}

	w := newSheetWriter(f)
	for _, t := range tables {
		if _, err := f.NewSheet(t.Name); err != nil {
			f.Close()
			return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, fmt.Errorf("failed to create sheet: %w", err))
		}
		if err := w.write(t.Name, t); err != nil {
			f.Close()
			return nil, sheetpipe.NewSheetError("export", a.config.FilePath, t.Name, err)
		}
	}
	return f, nil
}

// sheetWriter writes tables into sheets of one workbook, sharing cell styles.
type sheetWriter struct {
	f      *excelize.File
	styles map[string]int
}

func newSheetWriter(f *excelize.File) *sheetWriter {
	return &sheetWriter{f: f, styles: make(map[string]int)}
}

// write puts the header at A1 and the rows below it.
func (w *sheetWriter) write(sheet string, t *sheetpipe.Table) error {
	header := make([]interface{}, t.NumColumns())
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if t.NumRows() == 0 {
		return nil
	}
	// Every data cell gets an explicit number format; a rewritten cell must not
	// keep or inherit the format of the previous content.
	for j, col := range t.Columns {
		numFmt := generalFormat
		if col.Kind == sheetpipe.KindDate {
			numFmt = dateFormat
			if sheetpipe.HasClock(col.Values) {
				numFmt = dateTimeFormat
			}
		}
		style, err := w.style(numFmt)
		if err != nil {
			return err
		}
		top, err := excelize.CoordinatesToCellName(j+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(j+1, t.NumRows()+1)
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return fmt.Errorf("failed to style column %q: %w", col.Name, err)
		}
	}
	return nil
}

func (w *sheetWriter) style(numFmt string) (int, error) {
	if id, ok := w.styles[numFmt]; ok {
		return id, nil
	}
	id, err := w.f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return 0, fmt.Errorf("failed to create cell style: %w", err)
	}
	w.styles[numFmt] = id
	return id, nil
}

// commit serializes the workbook next to the destination and renames it into
// place. The destination is untouched unless the rename succeeds.
func (a *Adapter) commit(f *excelize.File) error {
	tmpPath, err := a.serialize(f)
	if err != nil {
		return err
	}
	return a.replaceWith(tmpPath)
}

// serialize writes the workbook to a temp file in the destination directory.
func (a *Adapter) serialize(f *excelize.File) (string, error) {
	dest := a.config.FilePath
	perm := os.FileMode(0644)
	if info, err := os.Stat(dest); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", sheetpipe.ErrWriteFailure, err)
	}
	tmpPath := tmp.Name()

	fail := func(step string, err error) (string, error) {
		tmp.Close()
		removeQuietly(tmpPath)
		return "", fmt.Errorf("%w: failed to %s: %v", sheetpipe.ErrWriteFailure, step, err)
	}
	if err := f.Write(tmp); err != nil {
		return fail("write workbook", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail("set file mode", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		removeQuietly(tmpPath)
		return "", fmt.Errorf("%w: failed to close temp file: %v", sheetpipe.ErrWriteFailure, err)
	}
	return tmpPath, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
	}
}
