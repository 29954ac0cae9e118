// Package adaptertest holds the behavior every workbook backend shares, run
// against each adapter from its own tests.
package adaptertest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	sheetpipe "github.com/ideamans/go-sheetpipe"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) sheetpipe.Adapter

// Run exercises the Adapter contract against backends created by newAdapter.
func Run(t *testing.T, newAdapter Factory) {
	t.Run("ExportLoad", func(t *testing.T) {
		ctx := context.Background()
		a := newAdapter(t)
		summary, detail := Summary(t), Detail(t)

		if err := a.Export(ctx, []*sheetpipe.Table{summary, detail}, sheetpipe.ExportOverwrite); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		tables := loadAll(t, a)
		if got := names(tables); got != "Detail,Summary" {
			t.Fatalf("sheets = %s, want Detail,Summary", got)
		}
		assertEqual(t, tables["Summary"], summary)
		assertEqual(t, tables["Detail"], detail)
		if kind := tables["Summary"].Column("Units").Kind; kind != sheetpipe.KindInt {
			t.Errorf("Units kind = %v, want integer", kind)
		}
		if kind := tables["Summary"].Column("Revenue").Kind; kind != sheetpipe.KindFloat {
			t.Errorf("Revenue kind = %v, want float", kind)
		}

		// Overwrite leaves exactly the new tables
		if err := a.Export(ctx, []*sheetpipe.Table{detail}, sheetpipe.ExportOverwrite); err != nil {
			t.Fatalf("second Export() error = %v", err)
		}
		if got := names(loadAll(t, a)); got != "Detail" {
			t.Errorf("sheets after overwrite = %s, want Detail", got)
		}
	})

	t.Run("Append", func(t *testing.T) {
		ctx := context.Background()
		a := newAdapter(t)
		summary := Summary(t)
		if err := a.Export(ctx, []*sheetpipe.Table{summary}, sheetpipe.ExportOverwrite); err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		err := a.Export(ctx, []*sheetpipe.Table{Detail(t), summary}, sheetpipe.ExportAppend)
		if !errors.Is(err, sheetpipe.ErrSheetNameConflict) {
			t.Fatalf("Export(append) conflict error = %v, want ErrSheetNameConflict", err)
		}
		if got := names(loadAll(t, a)); got != "Summary" {
			t.Errorf("sheets after failed append = %s, want Summary", got)
		}

		if err := a.Export(ctx, []*sheetpipe.Table{Detail(t)}, sheetpipe.ExportAppend); err != nil {
			t.Fatalf("Export(append) error = %v", err)
		}
		tables := loadAll(t, a)
		if got := names(tables); got != "Detail,Summary" {
			t.Errorf("sheets after append = %s, want Detail,Summary", got)
		}
		assertEqual(t, tables["Summary"], summary)
	})

	t.Run("UpdateSheet", func(t *testing.T) {
		ctx := context.Background()
		a := newAdapter(t)
		summary, detail := Summary(t), Detail(t)
		if err := a.Export(ctx, []*sheetpipe.Table{summary, detail}, sheetpipe.ExportOverwrite); err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		replacement, err := sheetpipe.FromRecords("ignored", []string{"sku", "qty", "note"}, [][]interface{}{
			{"Z-9", 1, "restocked"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := a.UpdateSheet(ctx, "Detail", replacement); err != nil {
			t.Fatalf("UpdateSheet(Detail) error = %v", err)
		}
		if err := a.UpdateSheet(ctx, "Extra", detail); err != nil {
			t.Fatalf("UpdateSheet(Extra) error = %v", err)
		}

		tables := loadAll(t, a)
		if got := names(tables); got != "Detail,Extra,Summary" {
			t.Fatalf("sheets = %s, want Detail,Extra,Summary", got)
		}
		assertEqual(t, tables["Summary"], summary)
		assertEqual(t, tables["Detail"], replacement)
		assertEqual(t, tables["Extra"], detail)

		if err := a.UpdateSheet(ctx, "", replacement); err == nil {
			t.Error("UpdateSheet() without a sheet name error = nil")
		}
	})

	t.Run("Selectors", func(t *testing.T) {
		ctx := context.Background()
		a := newAdapter(t)
		if err := a.Export(ctx, []*sheetpipe.Table{Summary(t)}, sheetpipe.ExportOverwrite); err != nil {
			t.Fatalf("Export() error = %v", err)
		}

		tables, err := a.Load(ctx, sheetpipe.SheetNamed("Summary").WithColumns("Units", "Region"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := strings.Join(tables["Summary"].ColumnNames(), ","); got != "Units,Region" {
			t.Errorf("columns = %s, want Units,Region", got)
		}

		if _, err := a.Load(ctx, sheetpipe.SheetNamed("Nope")); !errors.Is(err, sheetpipe.ErrSheetNotFound) {
			t.Errorf("Load(Nope) error = %v, want ErrSheetNotFound", err)
		}
		if _, err := a.Load(ctx, sheetpipe.SheetNamed("Summary").WithColumns("Nope")); !errors.Is(err, sheetpipe.ErrColumnNotFound) {
			t.Errorf("Load(column Nope) error = %v, want ErrColumnNotFound", err)
		}
	})
}

// Summary is a small aggregate table with text, integer and float columns.
func Summary(t *testing.T) *sheetpipe.Table {
	t.Helper()
	table, err := sheetpipe.FromRecords("Summary", []string{"Region", "Units", "Revenue"}, [][]interface{}{
		{"North", 120, 1250.5},
		{"South", 75, 980.25},
	})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

// Detail is a line-item table with a blank cell.
func Detail(t *testing.T) *sheetpipe.Table {
	t.Helper()
	table, err := sheetpipe.FromRecords("Detail", []string{"sku", "qty"}, [][]interface{}{
		{"A-1", 3},
		{"B-2", nil},
		{"C-3", 12},
	})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func loadAll(t *testing.T, a sheetpipe.Adapter) map[string]*sheetpipe.Table {
	t.Helper()
	tables, err := a.Load(context.Background(), sheetpipe.AllSheets())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return tables
}

func names(tables map[string]*sheetpipe.Table) string {
	list := make([]string, 0, len(tables))
	for name := range tables {
		list = append(list, name)
	}
	sort.Strings(list)
	return strings.Join(list, ",")
}

func assertEqual(t *testing.T, got, want *sheetpipe.Table) {
	t.Helper()
	if got == nil {
		t.Errorf("table %q is missing", want.Name)
		return
	}
	if !got.Equal(want) {
		t.Errorf("table %q = %v %v, want %v %v", want.Name, got.ColumnNames(), got.Rows(), want.ColumnNames(), want.Rows())
	}
}
