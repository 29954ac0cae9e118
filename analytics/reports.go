package analytics

// Names the sample workbooks are materialized under.
const (
	TableSales     = "sales"
	TableInventory = "inventory"
	TableCustomers = "customers"
)

// StandardReports are the sheets of the consolidated report workbook.
func StandardReports() []Report {
	return []Report{
		{
			Sheet: "Summary",
			Statement: Statement{
				Name: "summary",
				From: TableSales,
				Select: []Field{
					As(CountDistinct(Col("Product_ID")), "Total_Products"),
					As(CountAll(), "Total_Transactions"),
					As(Round(Sum(Col("Total_Sale")), 2), "Total_Revenue"),
					As(Round(Mean(Col("Total_Sale")), 2), "Avg_Transaction_Value"),
				},
			},
		},
		{
			Sheet: "Product Performance",
			Statement: Statement{
				Name: "product performance",
				From: TableSales,
				Select: []Field{
					ColumnField("Product_Name"),
					As(CountAll(), "Orders"),
					As(Sum(Col("Quantity")), "Units"),
					As(Round(Sum(Col("Total_Sale")), 2), "Revenue"),
				},
				GroupBy: []string{"Product_Name"},
				OrderBy: []Order{Desc("Revenue")},
			},
		},
		{
			Sheet: "Reorder Needed",
			Statement: Statement{
				Name: "reorder needed",
				From: TableInventory,
				Select: []Field{
					ColumnField("Product_Name"),
					ColumnField("Current_Stock"),
					ColumnField("Reorder_Point"),
					ColumnField("Supplier"),
				},
				Where: []Condition{
					{Column: "Current_Stock", Operator: "<", Value: Col("Reorder_Point")},
				},
			},
		},
	}
}

// Analyses are the console analyses run alongside the report.
func Analyses() []Report {
	return []Report{
		{
			Sheet: "Top Products",
			Statement: Statement{
				Name: "top products by revenue",
				From: TableSales,
				Select: []Field{
					ColumnField("Product_Name"),
					As(CountAll(), "Total_Orders"),
					As(Sum(Col("Quantity")), "Units_Sold"),
					As(Round(Sum(Col("Total_Sale")), 2), "Total_Revenue"),
				},
				GroupBy: []string{"Product_Name"},
				OrderBy: []Order{Desc("Total_Revenue")},
			},
		},
		{
			Sheet: "Reorder Alerts",
			Statement: Statement{
				Name: "reorder alerts",
				From: TableInventory,
				Select: []Field{
					ColumnField("Product_Name"),
					ColumnField("Current_Stock"),
					ColumnField("Reorder_Point"),
					ColumnField("Supplier"),
					As(Sub(Col("Reorder_Point"), Col("Current_Stock")), "Units_Needed"),
				},
				Where: []Condition{
					{Column: "Current_Stock", Operator: "<", Value: Col("Reorder_Point")},
				},
				OrderBy: []Order{Desc("Units_Needed")},
			},
		},
		{
			Sheet: "Sales By Customer Type",
			Statement: Statement{
				Name: "recent sales by customer type",
				From: TableSales,
				Select: []Field{
					As(Month(Col("Date")), "Month"),
					ColumnField("Customer_Type"),
					As(CountAll(), "Transactions"),
					As(Round(Sum(Col("Total_Sale")), 2), "Revenue"),
				},
				GroupBy: []string{"Month", "Customer_Type"},
				OrderBy: []Order{Desc("Month"), Desc("Revenue")},
				Limit:   10,
			},
		},
		{
			Sheet: "Inventory Efficiency",
			Statement: Statement{
				Name: "inventory efficiency",
				From: TableSales,
				Joins: []Join{
					{Table: TableInventory, Key: "Product_ID"},
				},
				Select: []Field{
					As(Col("sales.Product_Name"), "Product_Name"),
					As(Round(Mean(Col("sales.Quantity")), 1), "Avg_Order_Size"),
					As(Col("inventory.Current_Stock"), "Current_Stock"),
					As(Round(Div(Col("inventory.Current_Stock"), Mean(Col("sales.Quantity"))), 1), "Days_of_Stock"),
				},
				GroupBy: []string{"sales.Product_Name"},
				OrderBy: []Order{Asc("Days_of_Stock")},
			},
		},
		{
			Sheet: "Top Customers",
			Statement: Statement{
				Name: "top customers by region",
				From: TableSales,
				Joins: []Join{
					{Table: TableCustomers, Key: "Customer_ID"},
				},
				Select: []Field{
					ColumnField("Region"),
					ColumnField("Company_Name"),
					As(CountAll(), "Orders"),
					As(Round(Sum(Col("Total_Sale")), 2), "Revenue"),
				},
				GroupBy: []string{"Region", "Company_Name"},
				OrderBy: []Order{Desc("Revenue"), Asc("Company_Name")},
				Limit:   10,
			},
		},
	}
}
