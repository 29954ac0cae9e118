package excel

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Built-in number formats Excel renders as dates or times.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isoCellLayouts are the layouts of ISO 8601 date cells (t="d").
var isoCellLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// cellReader reads the stored values of a sheet, typed by cell type and
// number format rather than by the text Excel would display.
type cellReader struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func newCellReader(f *excelize.File) *cellReader {
	r := &cellReader{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	return r
}

// rows returns the sheet as a grid of Go values. Blank cells are nil.
func (r *cellReader) rows(sheet string) ([][]interface{}, error) {
	raw, err := r.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, len(raw))
	for i, row := range raw {
		values := make([]interface{}, len(row))
		for j, text := range row {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if values[j], err = r.value(sheet, cell, text); err != nil {
				return nil, err
			}
		}
		rows[i] = values
	}
	return rows, nil
}

func (r *cellReader) value(sheet, cell, raw string) (interface{}, error) {
	typ, err := r.f.GetCellType(sheet, cell)
	if err != nil {
		return nil, err
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return raw, nil
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		for _, layout := range isoCellLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return raw, nil
	}

	// Unset and number cells hold a number in their stored form
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		isDate, err := r.isDate(sheet, cell)
		if err != nil || !isDate {
			return i, err
		}
		return r.toTime(float64(i))
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	isDate, err := r.isDate(sheet, cell)
	if err != nil || !isDate {
		return n, err
	}
	return r.toTime(n)
}

func (r *cellReader) toTime(serial float64) (interface{}, error) {
	t, err := excelize.ExcelDateToTime(serial, r.date1904)
	if err != nil {
		// Negative serials are not dates
		return serial, nil
	}
	return t.Round(time.Millisecond), nil
}

func (r *cellReader) isDate(sheet, cell string) (bool, error) {
	id, err := r.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false, err
	}
	if isDate, ok := r.dateStyles[id]; ok {
		return isDate, nil
	}

	style, err := r.f.GetStyle(id)
	if err != nil {
		return false, err
	}
	isDate := builtInDateFormats[style.NumFmt]
	if style.CustomNumFmt != nil {
		isDate = isDateFormatCode(*style.CustomNumFmt)
	}
	r.dateStyles[id] = isDate
	return isDate, nil
}

// isDateFormatCode reports whether a number format code renders dates or
// times. Quoted text, escaped characters and bracketed sections such as
// colors and locales are ignored; only the first section is inspected.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quoted:
			quoted = c != '"'
		case bracket:
			bracket = c != ']'
		case c == '"':
			quoted = true
		case c == '[':
			bracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == ';':
			i = len(code)
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ydhs")
}
