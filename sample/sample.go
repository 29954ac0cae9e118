// Package sample writes the demo workbooks the pipeline runs on: a year of
// point-of-sale exports, a warehouse inventory sheet and a CRM customer list.
package sample

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/adapters/excel"
	"github.com/ideamans/go-sheetpipe/gologger"
)

var logger = gologger.NewLogger()

// Workbook file names and the sheet each one is written to.
const (
	SalesFile     = "monthly_sales.xlsx"
	InventoryFile = "current_inventory.xlsx"
	CustomersFile = "customer_list.xlsx"
	SheetName     = "Sheet1"
)

const (
	salesRows     = 500
	customerCount = 100
	firstProduct  = 100
	lastProduct   = 150
)

var (
	products      = []string{"Widget A", "Widget B", "Gadget Pro", "Tool Set", "Parts Kit"}
	customerTypes = []string{"Retail", "Wholesale", "Online"}
	suppliers     = []string{"Supplier X", "Supplier Y", "Supplier Z"}
	regions       = []string{"North", "South", "East", "West"}
	creditLimits  = []int64{5000, 10000, 25000, 50000}

	salesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	salesEnd   = time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
)

// Files holds the paths Generate wrote.
type Files struct {
	Sales     string
	Inventory string
	Customers string
}

// Paths returns the files in generation order.
func (f Files) Paths() []string {
	return []string{f.Sales, f.Inventory, f.Customers}
}

// Generate writes the three sample workbooks into dir, replacing existing
// ones. The same seed always produces the same data.
func Generate(ctx context.Context, dir string, seed int64) (Files, error) {
	rng := rand.New(rand.NewSource(seed))
	files := Files{
		Sales:     filepath.Join(dir, SalesFile),
		Inventory: filepath.Join(dir, InventoryFile),
		Customers: filepath.Join(dir, CustomersFile),
	}

	builders := []struct {
		path  string
		build func(*rand.Rand) (*sheetpipe.Table, error)
	}{
		{files.Sales, Sales},
		{files.Inventory, Inventory},
		{files.Customers, Customers},
	}
	for _, b := range builders {
		table, err := b.build(rng)
		if err != nil {
			return Files{}, fmt.Errorf("failed to build %s: %w", filepath.Base(b.path), err)
		}
		adapter, err := excel.New(&excel.Config{FilePath: b.path})
		if err != nil {
			return Files{}, err
		}
		if err := adapter.Export(ctx, []*sheetpipe.Table{table}, sheetpipe.ExportOverwrite); err != nil {
			return Files{}, err
		}
		logger.Info().
			Str("path", b.path).
			Int("rows", table.NumRows()).
			Msg("sample workbook written")
	}
	return files, nil
}

// Sales builds the point-of-sale export. Total_Sale is Quantity times
// Unit_Price rounded to cents; Customer_ID refers to the customer list.
func Sales(rng *rand.Rand) (*sheetpipe.Table, error) {
	days := int(salesEnd.Sub(salesStart).Hours()/24) + 1
	rows := make([][]interface{}, salesRows)
	for i := range rows {
		quantity := int64(rng.Intn(20) + 1)
		price := cents(10 + rng.Float64()*190)
		rows[i] = []interface{}{
			salesStart.AddDate(0, 0, rng.Intn(days)),
			productID(firstProduct + rng.Intn(lastProduct-firstProduct+1)),
			pick(rng, products),
			quantity,
			price,
			pick(rng, customerTypes),
			cents(float64(quantity) * price),
			customerID(rng.Intn(customerCount) + 1),
		}
	}
	return sheetpipe.FromRecords(SheetName, []string{
		"Date", "Product_ID", "Product_Name", "Quantity", "Unit_Price", "Customer_Type", "Total_Sale", "Customer_ID",
	}, rows)
}

// Inventory builds one stock row per product ID.
func Inventory(rng *rand.Rand) (*sheetpipe.Table, error) {
	// Product names come in blocks; Gadget Pro carries the extra ID
	blocks := []int{10, 10, 11, 10, 10}
	var names []string
	for i, n := range blocks {
		for j := 0; j < n; j++ {
			names = append(names, products[i])
		}
	}

	rows := make([][]interface{}, 0, len(names))
	for i, name := range names {
		rows = append(rows, []interface{}{
			productID(firstProduct + i),
			name,
			int64(rng.Intn(201)),
			int64(20 + rng.Intn(31)),
			pick(rng, suppliers),
		})
	}
	return sheetpipe.FromRecords(SheetName, []string{
		"Product_ID", "Product_Name", "Current_Stock", "Reorder_Point", "Supplier",
	}, rows)
}

// Customers builds the CRM customer list.
func Customers(rng *rand.Rand) (*sheetpipe.Table, error) {
	rows := make([][]interface{}, customerCount)
	for i := range rows {
		rows[i] = []interface{}{
			customerID(i + 1),
			fmt.Sprintf("Company %d", i+1),
			pick(rng, customerTypes),
			pick(rng, regions),
			creditLimits[rng.Intn(len(creditLimits))],
		}
	}
	return sheetpipe.FromRecords(SheetName, []string{
		"Customer_ID", "Company_Name", "Type", "Region", "Credit_Limit",
	}, rows)
}

func productID(n int) string {
	return fmt.Sprintf("PROD%d", n)
}

func customerID(n int) string {
	return fmt.Sprintf("CUST%04d", n)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
