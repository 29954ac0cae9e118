package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/adapters/excel"
	"github.com/ideamans/go-sheetpipe/analytics"
	"github.com/ideamans/go-sheetpipe/pipeline"
	"github.com/ideamans/go-sheetpipe/sample"
	"github.com/xuri/excelize/v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "sheetpipe-example")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	// 1. Generate the sample workbooks and build the report
	files, err := sample.Generate(ctx, dir, 42)
	if err != nil {
		return fmt.Errorf("failed to generate sample data: %w", err)
	}

	p, err := pipeline.New(pipeline.DefaultConfig(dir))
	if err != nil {
		return err
	}
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", result.ReportPath)

	report, err := excel.New(&excel.Config{FilePath: result.ReportPath})
	if err != nil {
		return err
	}

	// 2. Add this month's reorder list without touching the other sheets
	inventory, err := excel.New(&excel.Config{FilePath: files.Inventory})
	if err != nil {
		return err
	}
	below := analytics.Condition{Column: "Current_Stock", Operator: "<", Value: analytics.Col("Reorder_Point")}
	if err := pipeline.Patch(ctx, inventory, sheetpipe.SheetNamed(sample.SheetName), report, "Reorder This Month", below); err != nil {
		return fmt.Errorf("failed to patch report: %w", err)
	}

	// 3. Style the header of the new sheet in place
	err = report.EditSheet(ctx, "Reorder This Month", func(f *excelize.File, sheet string) error {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		return f.SetRowStyle(sheet, 1, 1, style)
	})
	if err != nil {
		return fmt.Errorf("failed to style sheet: %w", err)
	}

	// 4. Read everything back
	tables, err := report.Load(ctx, sheetpipe.AllSheets())
	if err != nil {
		return err
	}
	names, err := report.SheetNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Printf("%-20s %4d rows\n", name, tables[name].NumRows())
	}

	summary := tables["Summary"].Row(0)
	fmt.Printf("Revenue: %.2f over %d transactions\n",
		summary.GetAsFloat64("Total_Revenue", 0),
		summary.GetAsInt64("Total_Transactions", 0))
	fmt.Printf("Workbook: %s\n", filepath.Base(result.ReportPath))
	return nil
}
