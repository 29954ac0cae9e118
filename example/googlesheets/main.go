package main

import (
	"context"
	"fmt"
	"log"
	"os"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/adapters/googlesheets"
	"github.com/ideamans/go-sheetpipe/pipeline"
	"github.com/ideamans/go-sheetpipe/sample"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	spreadsheetID := os.Getenv("SPREADSHEET_ID")
	if spreadsheetID == "" {
		return fmt.Errorf("SPREADSHEET_ID is required")
	}

	// Uses GOOGLE_APPLICATION_CREDENTIALS when no key file is given
	sheets, err := googlesheets.NewWithJSONKeyFile(ctx, googlesheets.Config{SpreadsheetID: spreadsheetID}, os.Getenv("SERVICE_ACCOUNT_KEY"))
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}

	dir, err := os.MkdirTemp("", "sheetpipe-example")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if _, err := sample.Generate(ctx, dir, 42); err != nil {
		return err
	}

	// Publish the reports to the spreadsheet as well as the local workbook
	p, err := pipeline.New(pipeline.DefaultConfig(dir), pipeline.WithSinks(sheets))
	if err != nil {
		return err
	}
	if _, err := p.Run(ctx); err != nil {
		return err
	}

	tables, err := sheets.Load(ctx, sheetpipe.SheetNamed("Summary"))
	if err != nil {
		return err
	}
	for name, table := range tables {
		fmt.Printf("%s on %s: %v\n", name, sheets.Location(), table.Rows())
	}
	return nil
}
