package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustTable(t *testing.T, name string, header []string, rows [][]interface{}) *sheetpipe.Table {
	t.Helper()
	table, err := sheetpipe.FromRecords(name, header, rows)
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	return table
}

func TestStore_MaterializeReplaces(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	first := mustTable(t, "sales", []string{"sku", "units"}, [][]interface{}{
		{"X", 1}, {"Y", 2}, {"Z", 3},
	})
	second := mustTable(t, "sales", []string{"sku", "units"}, [][]interface{}{
		{"W", 9},
	})

	if err := s.Materialize(ctx, "sales", first); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if err := s.Materialize(ctx, "sales", second); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	got, err := s.Query(ctx, `SELECT sku, units FROM sales`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", got.NumRows())
	}
	if sku := got.Row(0).GetAsString("sku", ""); sku != "W" {
		t.Errorf("sku = %q, want W", sku)
	}
	if units := got.Row(0).GetAsInt64("units", 0); units != 9 {
		t.Errorf("units = %d, want 9", units)
	}
}

func TestStore_MaterializeFailureKeepsPrevious(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	good := mustTable(t, "t", []string{"a"}, [][]interface{}{{1}, {2}})
	if err := s.Materialize(ctx, "t", good); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	// SQLite column names are case-insensitive, so CREATE TABLE fails after the DROP
	clash := mustTable(t, "t", []string{"b", "B"}, [][]interface{}{{3, 4}})
	if err := s.Materialize(ctx, "t", clash); !errors.Is(err, sheetpipe.ErrQuery) {
		t.Fatalf("Materialize() error = %v, want ErrQuery", err)
	}

	got, err := s.Query(ctx, `SELECT a FROM t`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", got.NumRows())
	}
}

func TestStore_KindMapping(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	table := mustTable(t, "typed", []string{"i", "f", "s", "d", "b", "n"}, [][]interface{}{
		{1, 10.5, "x", day, true, nil},
		{2, 0.25, "y", day.AddDate(0, 1, 0), false, nil},
	})
	if err := s.Materialize(ctx, "typed", table); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	schema, err := s.Schema(ctx, "typed")
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	wantTypes := []string{"INTEGER", "REAL", "TEXT", "TIMESTAMP", "BOOLEAN", "TEXT"}
	if len(schema) != len(wantTypes) {
		t.Fatalf("Schema() = %v, want %d columns", schema, len(wantTypes))
	}
	for i, want := range wantTypes {
		if schema[i].Type != want {
			t.Errorf("column %s type = %s, want %s", schema[i].Name, schema[i].Type, want)
		}
	}

	got, err := s.Query(ctx, `SELECT * FROM typed ORDER BY i`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	row := got.Row(0)
	if v := row.GetAsFloat64("f", 0); v != 10.5 {
		t.Errorf("f = %v, want 10.5", v)
	}
	if v := row.GetAsTime("d", time.Time{}); !v.Equal(day) {
		t.Errorf("d = %v, want %v", v, day)
	}
	if got.Column("d").Kind != sheetpipe.KindDate {
		t.Errorf("d kind = %v, want date", got.Column("d").Kind)
	}
	// booleans come back as integers
	if v, _ := row.Value("b"); v != int64(1) {
		t.Errorf("b = %#v, want int64(1)", v)
	}
	if v, _ := row.Value("n"); v != nil {
		t.Errorf("n = %#v, want nil", v)
	}
}

func TestStore_Tables(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	for _, name := range []string{"sales", "inventory"} {
		if err := s.Materialize(ctx, name, mustTable(t, name, []string{"id"}, [][]interface{}{{1}})); err != nil {
			t.Fatalf("Materialize(%s) error = %v", name, err)
		}
	}

	names, err := s.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if len(names) != 2 || names[0] != "inventory" || names[1] != "sales" {
		t.Errorf("Tables() = %v, want [inventory sales]", names)
	}
}

func TestStore_QueryErrors(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "syntax error",
			run: func() error {
				_, err := s.Query(ctx, "SELEC 1")
				return err
			},
		},
		{
			name: "unknown table",
			run: func() error {
				_, err := s.Query(ctx, "SELECT * FROM missing")
				return err
			},
		},
		{
			name: "unknown table schema",
			run: func() error {
				_, err := s.Schema(ctx, "missing")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, sheetpipe.ErrQuery) {
				t.Fatalf("error = %v, want ErrQuery", err)
			}
			var qerr *sheetpipe.QueryError
			if !errors.As(err, &qerr) || qerr.Statement == "" {
				t.Errorf("error = %v, want QueryError carrying the statement", err)
			}
		})
	}
}

func TestStore_DuplicateResultColumns(t *testing.T) {
	s := openMemory(t)
	got, err := s.Query(context.Background(), "SELECT 1 AS a, 2 AS a")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	names := got.ColumnNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "a.1" {
		t.Errorf("ColumnNames() = %v, want [a a.1]", names)
	}
}

func TestStore_Close(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := s.Query(ctx, "SELECT 1"); !errors.Is(err, sheetpipe.ErrStoreClosed) {
		t.Errorf("Query() after Close error = %v, want ErrStoreClosed", err)
	}
	if err := s.Materialize(ctx, "t", mustTable(t, "t", []string{"a"}, nil)); !errors.Is(err, sheetpipe.ErrStoreClosed) {
		t.Errorf("Materialize() after Close error = %v, want ErrStoreClosed", err)
	}
}

func TestWith(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "business.db")

	var held *Store
	err := With(ctx, Config{Path: path}, func(s *Store) error {
		held = s
		return s.Materialize(ctx, "t", mustTable(t, "t", []string{"a"}, [][]interface{}{{1}}))
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if _, err := held.Tables(ctx); !errors.Is(err, sheetpipe.ErrStoreClosed) {
		t.Errorf("store not closed after With, Tables() error = %v", err)
	}

	// the file store persists between handles
	boom := errors.New("boom")
	err = With(ctx, Config{Path: path}, func(s *Store) error {
		got, err := s.Query(ctx, "SELECT a FROM t")
		if err != nil {
			return err
		}
		if got.NumRows() != 1 {
			t.Errorf("NumRows() = %d, want 1", got.NumRows())
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("With() error = %v, want boom", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := map[string]string{
		"sales":        `"sales"`,
		"Reorder Need": `"Reorder Need"`,
		`we"ird`:       `"we""ird"`,
	}
	for in, want := range tests {
		if got := QuoteIdent(in); got != want {
			t.Errorf("QuoteIdent(%q) = %s, want %s", in, got, want)
		}
	}
}
