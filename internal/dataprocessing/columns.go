package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
)

// Logical columns of a line-item export
const (
	ColTransactionID = "transaction_id"
	ColProduct       = "product_name"
	ColDate          = "date"
	ColQuantity      = "quantity"
	ColUnitPrice     = "unit_price"
	ColTotalAmount   = "total_amount"
	ColCategory      = "category"
)

// columnAliases lists accepted header spellings per logical column, after
// normalizeHeader
var columnAliases = map[string][]string{
	ColTransactionID: {"transaction_id", "transaction", "txn_id", "txn", "order_id", "order", "receipt", "receipt_id", "invoice", "invoice_no", "basket_id"},
	ColProduct:       {"product_name", "product", "item", "item_name", "description", "sku_name"},
	ColDate:          {"date", "transaction_date", "order_date", "sale_date", "timestamp", "datetime"},
	ColQuantity:      {"quantity", "qty", "units", "quantity_sold"},
	ColUnitPrice:     {"unit_price", "price", "unit_cost"},
	ColTotalAmount:   {"total_amount", "total", "amount", "line_total", "revenue", "sales"},
	ColCategory:      {"category", "product_category", "department", "dept"},
}

var requiredColumns = []string{ColTransactionID, ColProduct}

// columnMap maps logical columns to their index in a row
type columnMap map[string]int

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "﻿")))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	return h
}

// inferColumns maps a header row to logical columns. The first matching
// header wins when a file repeats a column.
func inferColumns(header []string) columnMap {
	lookup := make(map[string]string)
	for col, aliases := range columnAliases {
		for _, a := range aliases {
			lookup[a] = col
		}
	}

	cols := make(columnMap)
	for i, h := range header {
		col, ok := lookup[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := cols[col]; !seen {
			cols[col] = i
		}
	}
	return cols
}

// isHeader reports whether every required column is present
func (c columnMap) isHeader() bool {
	return c.missing() == nil
}

func (c columnMap) missing() []string {
	var out []string
	for _, col := range requiredColumns {
		if _, ok := c[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}

func (c columnMap) has(col string) bool {
	_, ok := c[col]
	return ok
}

// get returns the trimmed cell for col, or "" when absent
func (c columnMap) get(row []string, col string) string {
	idx, ok := c[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (c columnMap) String() string {
	parts := make([]string, 0, len(c))
	for col, idx := range c {
		parts = append(parts, fmt.Sprintf("%s=%d", col, idx))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
