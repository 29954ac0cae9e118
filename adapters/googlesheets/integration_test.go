package googlesheets

import (
	"context"
	"os"
	"testing"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/internal/adaptertest"
)

// TestAdaptor_LiveContract runs against a real spreadsheet. Every tab of the
// spreadsheet is replaced.
func TestAdaptor_LiveContract(t *testing.T) {
	spreadsheetID := os.Getenv("TEST_GOOGLE_SHEET_ID")
	if spreadsheetID == "" {
		t.Skip("TEST_GOOGLE_SHEET_ID not set")
	}
	if testing.Short() {
		t.Skip("skipping live Google Sheets test in short mode")
	}

	adaptor, err := NewWithJSONKeyFile(context.Background(), Config{SpreadsheetID: spreadsheetID}, "")
	if err != nil {
		t.Fatalf("Failed to create adaptor: %v", err)
	}
	adaptertest.Run(t, func(t *testing.T) sheetpipe.Adapter {
		return adaptor
	})
}
