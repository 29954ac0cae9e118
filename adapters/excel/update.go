package excel

import (
	"context"
	"fmt"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// updateState tracks a sheet update from open to commit.
type updateState int

const (
	stateNotStarted updateState = iota
	stateOpened
	stateSheetLocated
	stateSerialized
	stateCommitted
	stateFailed
)

func (s updateState) String() string {
	switch s {
	case stateNotStarted:
		return "not-started"
	case stateOpened:
		return "opened"
	case stateSheetLocated:
		return "sheet-located-or-created"
	case stateSerialized:
		return "serialized"
	case stateCommitted:
		return "committed"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("updateState(%d)", int(s))
	}
}

// UpdateSheet replaces the content of one sheet with the table, or appends the
// sheet after the last one when it does not exist yet.
//
// Only the target worksheet is parsed and rewritten; every other sheet is
// carried over from the original package untouched. The workbook is written to
// a temp file and renamed over the destination, so on any error the file on
// disk is exactly what it was before the call.
func (a *Adapter) UpdateSheet(ctx context.Context, sheet string, table *sheetpipe.Table) error {
	if sheet == "" {
		return sheetpipe.NewSheetError("update", a.config.FilePath, sheet, ErrMissingSheetName)
	}
	if table == nil {
		return sheetpipe.NewSheetError("update", a.config.FilePath, sheet, fmt.Errorf("table is required"))
	}
	return a.modify(ctx, "update", sheet, true, func(f *excelize.File, name string) error {
		return newSheetWriter(f).write(name, table)
	})
}

// EditSheet applies fn to an existing sheet and commits the workbook the same
// way UpdateSheet does. fn must only touch the named sheet for the other
// sheets to stay unchanged.
func (a *Adapter) EditSheet(ctx context.Context, sheet string, fn func(f *excelize.File, sheet string) error) error {
	if sheet == "" {
		return sheetpipe.NewSheetError("edit", a.config.FilePath, sheet, ErrMissingSheetName)
	}
	return a.modify(ctx, "edit", sheet, false, fn)
}

// modify runs the open, locate, serialize, commit sequence. With replace set,
// a missing sheet is appended and an existing one is cleared before fn runs.
func (a *Adapter) modify(ctx context.Context, op, sheet string, replace bool, fn func(f *excelize.File, sheet string) error) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := logger.With().Str("op", op).Str("path", a.config.FilePath).Str("sheet", sheet).Logger()
	state := stateNotStarted
	transition := func(next updateState) {
		log.Debug().Stringer("from", state).Stringer("to", next).Msg("sheet update state")
		state = next
	}
	defer func() {
		if err != nil {
			transition(stateFailed)
			log.Error().Err(err).Msg("sheet update failed, destination left unchanged")
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := a.open(op, sheet)
	if err != nil {
		return err
	}
	defer f.Close()
	transition(stateOpened)

	name, err := a.locate(f, log, sheet, replace)
	if err != nil {
		return sheetpipe.NewSheetError(op, a.config.FilePath, sheet, err)
	}
	transition(stateSheetLocated)

	if err := fn(f, name); err != nil {
		return sheetpipe.NewSheetError(op, a.config.FilePath, name, err)
	}

	tmpPath, err := a.serialize(f)
	if err != nil {
		return sheetpipe.NewSheetError(op, a.config.FilePath, name, err)
	}
	transition(stateSerialized)

	if err := a.replaceWith(tmpPath); err != nil {
		return sheetpipe.NewSheetError(op, a.config.FilePath, name, err)
	}
	transition(stateCommitted)

	log.Info().Msg("sheet committed")
	return nil
}

func (a *Adapter) locate(f *excelize.File, log zerolog.Logger, sheet string, replace bool) (string, error) {
	name, err := locateSheet(f, sheet)
	switch {
	case err == nil:
		if replace {
			if err := clearSheet(f, name); err != nil {
				return "", fmt.Errorf("failed to clear sheet: %w", err)
			}
			log.Debug().Msg("existing sheet cleared")
		}
		return name, nil
	case err == sheetpipe.ErrSheetNotFound && replace:
		// NewSheet appends after the last sheet and leaves the active tab alone
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to create sheet: %w", err)
		}
		log.Debug().Msg("sheet appended")
		return sheet, nil
	default:
		return "", err
	}
}

// clearSheet removes every value and formula in the sheet's used range.
// Styles, column widths and other sheet metadata are kept.
func clearSheet(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}
	maxRow, maxCol := len(rows), 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	if dim, err := f.GetSheetDimension(sheet); err == nil && dim != "" {
		if r, c, ok := dimensionExtent(dim); ok {
			maxRow, maxCol = max(maxRow, r), max(maxCol, c)
		}
	}

	for r := 1; r <= maxRow; r++ {
		for c := 1; c <= maxCol; c++ {
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return err
			}
			formula, err := f.GetCellFormula(sheet, cell)
			if err != nil {
				return err
			}
			if formula != "" {
				if err := f.SetCellFormula(sheet, cell, ""); err != nil {
					return err
				}
			}
			hasValue := r <= len(rows) && c <= len(rows[r-1]) && rows[r-1][c-1] != ""
			if !hasValue && formula == "" {
				continue
			}
			if err := f.SetCellValue(sheet, cell, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// dimensionExtent returns the bottom-right corner of a dimension reference such as "A1:D10".
func dimensionExtent(dim string) (int, int, bool) {
	ref := dim
	for i := len(dim) - 1; i >= 0; i-- {
		if dim[i] == ':' {
			ref = dim[i+1:]
			break
		}
	}
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0, false
	}
	return row, col, true
}

func (a *Adapter) replaceWith(tmpPath string) error {
	if err := a.replace(tmpPath, a.config.FilePath); err != nil {
		removeQuietly(tmpPath)
		return fmt.Errorf("%w: failed to replace %s: %v", sheetpipe.ErrWriteFailure, a.config.FilePath, err)
	}
	return nil
}
