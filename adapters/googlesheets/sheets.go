package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/gologger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var logger = gologger.NewLogger()

const (
	readColumns = "A:ZZ"
	writeOrigin = "A1"
)

// Adaptor implements the sheetpipe.Adapter interface for one Google spreadsheet.
// Each tab of the spreadsheet is a sheet.
//
// Writes go through the Sheets API one request at a time, so unlike the
// Excel adapter a failed export can leave some tabs written.
type Adaptor struct {
	service       *sheets.Service
	spreadsheetID string
	mu            sync.Mutex
}

var _ sheetpipe.Adapter = (*Adaptor)(nil)

// NewAdaptor creates a new Google Sheets adaptor with provided options
func NewAdaptor(ctx context.Context, config Config, opts ...option.ClientOption) (*Adaptor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Adaptor{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
	}, nil
}

// Location identifies the spreadsheet in errors and logs.
func (a *Adaptor) Location() string {
	return "sheets:" + a.spreadsheetID
}

// tab is one sheet of the spreadsheet as reported by the API.
type tab struct {
	id    int64
	title string
}

// Load reads the selected tabs into tables keyed by tab title
func (a *Adaptor) Load(ctx context.Context, sel sheetpipe.Selector) (map[string]*sheetpipe.Table, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabs, err := a.tabs(ctx, "load")
	if err != nil {
		return nil, err
	}

	names := make([]string, len(tabs))
	for i, t := range tabs {
		names[i] = t.title
	}
	if sel.Sheet != "" {
		t, ok := findTab(tabs, sel.Sheet)
		if !ok {
			return nil, sheetpipe.NewSheetError("load", a.Location(), sel.Sheet, sheetpipe.ErrSheetNotFound)
		}
		names = []string{t.title}
	}

	tables := make(map[string]*sheetpipe.Table, len(names))
	for _, name := range names {
		resp, err := a.service.Spreadsheets.Values.Get(a.spreadsheetID, cellRange(name, readColumns)).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).
			Do()
		if err != nil {
			return nil, sheetpipe.NewSheetError("load", a.Location(), name, fmt.Errorf("failed to get sheet data: %w", err))
		}

		rows := make([][]string, len(resp.Values))
		for i, row := range resp.Values {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = cellText(v)
			}
			rows[i] = cells
		}

		table, err := sheetpipe.FromGrid(name, rows)
		if err != nil {
			return nil, sheetpipe.NewSheetError("load", a.Location(), name, err)
		}
		if table, err = sel.Apply(table); err != nil {
			return nil, sheetpipe.NewSheetError("load", a.Location(), name, err)
		}
		tables[name] = table

		logger.Debug().
			Str("path", a.Location()).
			Str("sheet", name).
			Int("rows", table.NumRows()).
			Int("columns", table.NumColumns()).
			Msg("loaded sheet")
	}

	return tables, nil
}

// Export writes the tables as tabs of the spreadsheet.
//
// ExportOverwrite rewrites tabs that already exist, adds the missing ones and
// deletes every other tab. ExportAppend adds new tabs after the existing ones
// and fails with sheetpipe.ErrSheetNameConflict before any request is sent
// if one of the titles is already taken.
func (a *Adaptor) Export(ctx context.Context, tables []*sheetpipe.Table, mode sheetpipe.ExportMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if len(tables) == 0 {
		return sheetpipe.NewSheetError("export", a.Location(), "", ErrNoTables)
	}
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return sheetpipe.NewSheetError("export", a.Location(), "", ErrMissingSheetName)
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return sheetpipe.NewSheetError("export", a.Location(), t.Name, fmt.Errorf("%w: duplicate table name", sheetpipe.ErrSheetNameConflict))
		}
		seen[key] = true
	}
	if mode != sheetpipe.ExportOverwrite && mode != sheetpipe.ExportAppend {
		return fmt.Errorf("unsupported export mode: %v", mode)
	}

	tabs, err := a.tabs(ctx, "export")
	if err != nil {
		return err
	}

	var requests []*sheets.Request
	existing := make(map[string]bool, len(tables))
	for _, t := range tables {
		if _, ok := findTab(tabs, t.Name); ok {
			if mode == sheetpipe.ExportAppend {
				return sheetpipe.NewSheetError("export", a.Location(), t.Name, sheetpipe.ErrSheetNameConflict)
			}
			existing[t.Name] = true
			continue
		}
		requests = append(requests, addSheet(t.Name))
	}
	if mode == sheetpipe.ExportOverwrite {
		// Deletes follow the adds so the spreadsheet never runs out of tabs
		for _, t := range tabs {
			if !seen[strings.ToLower(t.title)] {
				requests = append(requests, deleteSheet(t.id))
			}
		}
	}
	if err := a.batchUpdate(ctx, requests); err != nil {
		return sheetpipe.NewSheetError("export", a.Location(), "", err)
	}

	for _, t := range tables {
		if err := a.write(ctx, t.Name, t, existing[t.Name]); err != nil {
			return sheetpipe.NewSheetError("export", a.Location(), t.Name, err)
		}
	}

	logger.Info().
		Str("path", a.Location()).
		Str("mode", mode.String()).
		Int("sheets", len(tables)).
		Msg("exported spreadsheet")
	return nil
}

// UpdateSheet clears and rewrites one tab, adding it after the last tab when
// absent. No other tab is touched.
func (a *Adaptor) UpdateSheet(ctx context.Context, sheet string, table *sheetpipe.Table) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if sheet == "" {
		return sheetpipe.NewSheetError("update", a.Location(), "", ErrMissingSheetName)
	}
	if table == nil {
		return sheetpipe.NewSheetError("update", a.Location(), sheet, fmt.Errorf("table is required"))
	}

	tabs, err := a.tabs(ctx, "update")
	if err != nil {
		return err
	}

	title := sheet
	t, exists := findTab(tabs, sheet)
	if exists {
		title = t.title
	} else if err := a.batchUpdate(ctx, []*sheets.Request{addSheet(sheet)}); err != nil {
		return sheetpipe.NewSheetError("update", a.Location(), sheet, err)
	}

	if err := a.write(ctx, title, table, exists); err != nil {
		return sheetpipe.NewSheetError("update", a.Location(), title, err)
	}

	logger.Info().
		Str("path", a.Location()).
		Str("sheet", title).
		Bool("replaced", exists).
		Int("rows", table.NumRows()).
		Msg("updated sheet")
	return nil
}

// tabs lists the tabs of the spreadsheet in order.
func (a *Adaptor) tabs(ctx context.Context, op string) ([]tab, error) {
	resp, err := a.service.Spreadsheets.Get(a.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, sheetpipe.NewSheetError(op, a.Location(), "", sheetpipe.ErrSourceNotFound)
		}
		return nil, sheetpipe.NewSheetError(op, a.Location(), "", fmt.Errorf("failed to get spreadsheet: %w", err))
	}

	tabs := make([]tab, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		tabs = append(tabs, tab{id: s.Properties.SheetId, title: s.Properties.Title})
	}
	return tabs, nil
}

func (a *Adaptor) batchUpdate(ctx context.Context, requests []*sheets.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := a.service.Spreadsheets.BatchUpdate(a.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: failed to update tabs: %v", sheetpipe.ErrWriteFailure, err)
	}
	return nil
}

// write puts the header at A1 and the rows below it, clearing old values first
// when the tab already held data.
func (a *Adaptor) write(ctx context.Context, title string, t *sheetpipe.Table, replace bool) error {
	if replace {
		_, err := a.service.Spreadsheets.Values.Clear(a.spreadsheetID, cellRange(title, readColumns), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("%w: failed to clear sheet: %v", sheetpipe.ErrWriteFailure, err)
		}
	}

	values := make([][]interface{}, 0, t.NumRows()+1)
	header := make([]interface{}, t.NumColumns())
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	values = append(values, header)
	for _, row := range t.Rows() {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = sheetValue(v)
		}
		values = append(values, cells)
	}

	_, err := a.service.Spreadsheets.Values.Update(a.spreadsheetID, cellRange(title, writeOrigin), &sheets.ValueRange{
		Values: values,
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: failed to update sheet: %v", sheetpipe.ErrWriteFailure, err)
	}
	return nil
}

func addSheet(title string) *sheets.Request {
	return &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{Title: title},
		},
	}
}

func deleteSheet(id int64) *sheets.Request {
	return &sheets.Request{
		DeleteSheet: &sheets.DeleteSheetRequest{
			SheetId: id,
			// The first tab has ID 0, which omitempty would drop
			ForceSendFields: []string{"SheetId"},
		},
	}
}

// findTab matches titles case-insensitively, as the Sheets API does.
func findTab(tabs []tab, title string) (tab, bool) {
	for _, t := range tabs {
		if t.title == title {
			return t, true
		}
	}
	for _, t := range tabs {
		if strings.EqualFold(t.title, title) {
			return t, true
		}
	}
	return tab{}, false
}

// cellRange builds an A1 range on a tab, quoting the title.
func cellRange(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}

// cellText converts an unformatted cell value to the text the table builder parses
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// sheetValue converts a table value to a RAW cell value. Numbers and booleans
// keep their type; dates are written as text the loader parses back.
func sheetValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case int64, float64, bool, string:
		return val
	case time.Time:
		return sheetpipe.FormatValue(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
