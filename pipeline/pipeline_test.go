package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/adapters/excel"
	"github.com/ideamans/go-sheetpipe/analytics"
	"github.com/ideamans/go-sheetpipe/sample"
	"github.com/ideamans/go-sheetpipe/store"
	"github.com/rs/zerolog"
)

// recordingSink keeps what the pipeline exported.
type recordingSink struct {
	tables []*sheetpipe.Table
	mode   sheetpipe.ExportMode
	err    error
}

func (s *recordingSink) Export(_ context.Context, tables []*sheetpipe.Table, mode sheetpipe.ExportMode) error {
	s.tables, s.mode = tables, mode
	return s.err
}

func (s *recordingSink) UpdateSheet(context.Context, string, *sheetpipe.Table) error {
	return nil
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if _, err := sample.Generate(ctx, dir, 42); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	cfg := DefaultConfig(dir)
	cfg.StorePath = filepath.Join(dir, "business_data.db")

	var logs bytes.Buffer
	sink := &recordingSink{}
	p, err := New(cfg, WithSinks(sink), WithLogger(zerolog.New(&logs)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantLoaded := map[string]int{"sales": 500, "inventory": 51, "customers": 100}
	for table, rows := range wantLoaded {
		if result.Loaded[table] != rows {
			t.Errorf("Loaded[%s] = %d, want %d", table, result.Loaded[table], rows)
		}
	}
	if len(result.Reports) != 3 || len(result.Analyses) != 5 {
		t.Fatalf("got %d reports and %d analyses, want 3 and 5", len(result.Reports), len(result.Analyses))
	}
	if !strings.Contains(logs.String(), result.RunID.String()) {
		t.Errorf("logs do not carry the run ID %s", result.RunID)
	}
	if len(sink.tables) != 3 || sink.mode != sheetpipe.ExportOverwrite {
		t.Errorf("sink got %d tables in mode %v", len(sink.tables), sink.mode)
	}

	report, err := excel.New(&excel.Config{FilePath: result.ReportPath})
	if err != nil {
		t.Fatalf("excel.New() error = %v", err)
	}
	names, err := report.SheetNames(ctx)
	if err != nil {
		t.Fatalf("SheetNames() error = %v", err)
	}
	if strings.Join(names, ",") != "Summary,Product Performance,Reorder Needed" {
		t.Errorf("report sheets = %v", names)
	}

	sheets, err := report.Load(ctx, sheetpipe.AllSheets())
	if err != nil {
		t.Fatalf("Load(report) error = %v", err)
	}
	summary := sheets["Summary"]
	if got := summary.Row(0).GetAsInt64("Total_Transactions", 0); got != 500 {
		t.Errorf("Total_Transactions = %d, want 500", got)
	}
	if got := summary.Row(0).GetAsInt64("Total_Products", 0); got < 1 || got > 51 {
		t.Errorf("Total_Products = %d, want between 1 and 51", got)
	}

	reorder := sheets["Reorder Needed"]
	for i := 0; i < reorder.NumRows(); i++ {
		row := reorder.Row(i)
		if row.GetAsInt64("Current_Stock", 0) >= row.GetAsInt64("Reorder_Point", 0) {
			t.Errorf("row %d is not below its reorder point", i)
		}
	}

	performance := sheets["Product Performance"]
	if performance.NumRows() != 5 {
		t.Errorf("Product Performance rows = %d, want 5", performance.NumRows())
	}
	for i := 1; i < performance.NumRows(); i++ {
		if performance.Row(i).GetAsFloat64("Revenue", 0) > performance.Row(i-1).GetAsFloat64("Revenue", 0) {
			t.Errorf("Product Performance is not ordered by revenue at row %d", i)
		}
	}

	// The store file keeps the materialized tables after the run
	err = store.With(ctx, store.Config{Path: cfg.StorePath}, func(s *store.Store) error {
		tables, err := s.Tables(ctx)
		if err != nil {
			return err
		}
		if strings.Join(tables, ",") != "customers,inventory,sales" {
			t.Errorf("store tables = %v", tables)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("store.With() error = %v", err)
	}
}

func TestPipeline_RunGlobSources(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, month := range []struct {
		file  string
		units []interface{}
	}{
		{"sales_2024_01.xlsx", []interface{}{3, 4}},
		{"sales_2024_02.xlsx", []interface{}{5}},
	} {
		rows := make([][]interface{}, len(month.units))
		for i, u := range month.units {
			rows[i] = []interface{}{"Widget A", u}
		}
		writeWorkbook(t, filepath.Join(dir, month.file), "Data", []string{"Product_Name", "Units"}, rows)
	}

	cfg := &Config{
		Sources: []SourceSpec{
			{Table: "sales", Path: filepath.Join(dir, "sales_*.xlsx"), Sheet: "Data", SourceColumn: "Source_File"},
		},
		ReportPath: filepath.Join(dir, "out", "report.xlsx"),
		Reports: []analytics.Report{
			{
				Sheet: "By File",
				Statement: analytics.Statement{
					From: "sales",
					Select: []analytics.Field{
						analytics.ColumnField("Source_File"),
						analytics.As(analytics.Sum(analytics.Col("Units")), "Units"),
					},
					GroupBy: []string{"Source_File"},
					OrderBy: []analytics.Order{analytics.Asc("Source_File")},
				},
			},
		},
	}

	p, err := New(cfg, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Loaded["sales"] != 3 {
		t.Errorf("Loaded[sales] = %d, want 3", result.Loaded["sales"])
	}

	byFile := result.Reports[0]
	want := []struct {
		file  string
		units int64
	}{
		{"sales_2024_01.xlsx", 7},
		{"sales_2024_02.xlsx", 5},
	}
	if byFile.NumRows() != len(want) {
		t.Fatalf("By File rows = %d, want %d", byFile.NumRows(), len(want))
	}
	for i, w := range want {
		row := byFile.Row(i)
		if row.GetAsString("Source_File", "") != w.file || row.GetAsInt64("Units", 0) != w.units {
			t.Errorf("row %d = %v, want %s %d", i, row.Map(), w.file, w.units)
		}
	}

	if catalog, ok := p.Catalog().Get("sales"); !ok || catalog.Column("Source_File") == nil {
		t.Errorf("catalog does not hold the consolidated sales table")
	}
}

func TestPipeline_RunErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if _, err := sample.Generate(ctx, dir, 1); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tests := []struct {
		name   string
		modify func(cfg *Config)
		opts   []Option
		is     error
	}{
		{
			name:   "missing source",
			modify: func(cfg *Config) { cfg.Sources[0].Path = filepath.Join(dir, "nope.xlsx") },
			is:     sheetpipe.ErrSourceNotFound,
		},
		{
			name:   "missing sheet",
			modify: func(cfg *Config) { cfg.Sources[1].Sheet = "Warehouse" },
			is:     sheetpipe.ErrSheetNotFound,
		},
		{
			name:   "missing column",
			modify: func(cfg *Config) { cfg.Sources[2].Columns = []string{"Customer_ID", "Phone"} },
			is:     sheetpipe.ErrColumnNotFound,
		},
		{
			name: "report on unknown table",
			modify: func(cfg *Config) {
				cfg.Reports = []analytics.Report{{Sheet: "X", Statement: analytics.Statement{From: "orders"}}}
			},
			is: sheetpipe.ErrQuery,
		},
		{
			name:   "failing sink",
			modify: func(cfg *Config) {},
			opts:   []Option{WithSinks(&recordingSink{err: sheetpipe.ErrWriteFailure})},
			is:     sheetpipe.ErrWriteFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(dir)
			cfg.ReportPath = filepath.Join(t.TempDir(), ReportFile)
			tt.modify(cfg)

			p, err := New(cfg, append(tt.opts, WithLogger(zerolog.Nop()))...)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, err := p.Run(ctx); !errors.Is(err, tt.is) {
				t.Errorf("Run() error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *Config)
		wantErr bool
	}{
		{"default", func(cfg *Config) {}, false},
		{"no sources", func(cfg *Config) { cfg.Sources = nil }, true},
		{"source without path", func(cfg *Config) { cfg.Sources[0].Path = "" }, true},
		{"source without table", func(cfg *Config) { cfg.Sources[0].Table = "" }, true},
		{"duplicate table", func(cfg *Config) { cfg.Sources[1].Table = cfg.Sources[0].Table }, true},
		{"no report path", func(cfg *Config) { cfg.ReportPath = "" }, true},
		{"no reports", func(cfg *Config) { cfg.Reports = nil }, true},
		{"unnamed report", func(cfg *Config) { cfg.Reports[0].Sheet = "" }, true},
		{"duplicate report sheet", func(cfg *Config) { cfg.Reports[1].Sheet = cfg.Reports[0].Sheet }, true},
		{"bad mode", func(cfg *Config) { cfg.Mode = sheetpipe.ExportMode(5) }, true},
		{"append mode", func(cfg *Config) { cfg.Mode = sheetpipe.ExportAppend }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("data")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil")
	}
}

func TestPatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "inventory.xlsx")
	writeWorkbook(t, srcPath, "Stock", []string{"sku", "stock", "reorder"}, [][]interface{}{
		{"A", 5, 20}, {"B", 50, 20}, {"C", 3, 10},
	})
	dstPath := filepath.Join(dir, "report.xlsx")
	writeWorkbook(t, dstPath, "Summary", []string{"total"}, [][]interface{}{{50}})

	src := newAdapter(t, srcPath)
	dst := newAdapter(t, dstPath)

	below := analytics.Condition{Column: "stock", Operator: "<", Value: analytics.Col("reorder")}
	if err := Patch(ctx, src, sheetpipe.SheetNamed("Stock"), dst, "Reorder", below); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	names, err := dst.SheetNames(ctx)
	if err != nil {
		t.Fatalf("SheetNames() error = %v", err)
	}
	if strings.Join(names, ",") != "Summary,Reorder" {
		t.Errorf("sheets = %v, want Summary,Reorder", names)
	}

	tables, err := dst.Load(ctx, sheetpipe.SheetNamed("Reorder"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	reorder := tables["Reorder"]
	want, _ := sheetpipe.FromRecords("Reorder", []string{"sku", "stock", "reorder"}, [][]interface{}{{"A", 5, 20}, {"C", 3, 10}})
	if !reorder.Equal(want) {
		t.Errorf("Reorder = %v, want %v", reorder.Rows(), want.Rows())
	}

	// Selecting every sheet of a multi-sheet workbook is ambiguous
	if err := Patch(ctx, dst, sheetpipe.AllSheets(), src, "X"); err == nil {
		t.Error("Patch() from two sheets error = nil")
	}
	if err := Patch(ctx, src, sheetpipe.SheetNamed("Stock"), dst, "Reorder", analytics.Condition{Column: "ghost", Operator: "==", Value: 1}); !errors.Is(err, sheetpipe.ErrColumnNotFound) {
		t.Errorf("Patch() with unknown filter column error = %v, want ErrColumnNotFound", err)
	}
}

func newAdapter(t *testing.T, path string) *excel.Adapter {
	t.Helper()
	a, err := excel.New(&excel.Config{FilePath: path})
	if err != nil {
		t.Fatalf("excel.New() error = %v", err)
	}
	return a
}

func writeWorkbook(t *testing.T, path, sheet string, header []string, rows [][]interface{}) {
	t.Helper()
	table, err := sheetpipe.FromRecords(sheet, header, rows)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	if err := newAdapter(t, path).Export(context.Background(), []*sheetpipe.Table{table}, sheetpipe.ExportOverwrite); err != nil {
		t.Fatalf("Export(%s) error = %v", path, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
}
