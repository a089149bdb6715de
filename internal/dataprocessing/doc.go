// Package dataprocessing reads point-of-sale line-item exports and turns them
// into the inputs of the analytics engine.
//
// # Input files
//
// CSV and Excel (.xlsx) files are supported. The first row that names both a
// transaction column and a product column is taken as the header; columns are
// matched by name, case-insensitively, so exports from different tills load
// without a mapping file:
//
//	transaction_id | product_name | date | quantity | unit_price | total_amount | category
//
// Only transaction_id and product_name are required. Numbers may carry
// thousands separators, and dates are accepted in the layouts listed in
// dateLayouts.
//
// # Usage
//
//	parser := dataprocessing.NewParser(logger)
//	ds, err := parser.ParseFile("sales.xlsx")
//	if err != nil {
//	    return err
//	}
//	txns := ds.Transactions()   // basket analysis input
//	lines := ds.Lines           // time-series aggregation input
//
// # Error Handling
//
// Unreadable files and missing columns are reported as parsing AppErrors, so
// the HTTP layer renders them as 400 problems. Rows that cannot be read are
// skipped and counted in Dataset.Skipped.
package dataprocessing
