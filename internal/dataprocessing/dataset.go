package dataprocessing

import (
	"retailcast/pkg/contracts/domain"
)

// Dataset is the parsed content of one line-item file
type Dataset struct {
	Source string
	Format string
	Lines  []domain.SaleLine
	// Skipped counts non-blank rows that could not be read
	Skipped int
	// HasDates is set when the file has a date column
	HasDates bool
}

// Transactions groups line items into baskets, keeping the order in which
// each transaction first appears
func (d *Dataset) Transactions() []domain.Transaction {
	return GroupBaskets(d.Lines)
}

// Products returns the number of distinct product names
func (d *Dataset) Products() int {
	seen := make(map[string]struct{})
	for _, line := range d.Lines {
		seen[line.Product] = struct{}{}
	}
	return len(seen)
}

// GroupBaskets collects the products of each transaction ID
func GroupBaskets(lines []domain.SaleLine) []domain.Transaction {
	pos := make(map[string]int)
	var txns []domain.Transaction
	for _, line := range lines {
		i, ok := pos[line.TransactionID]
		if !ok {
			i = len(txns)
			pos[line.TransactionID] = i
			txns = append(txns, domain.Transaction{ID: line.TransactionID})
		}
		txns[i].Items = append(txns[i].Items, line.Product)
	}
	return txns
}

// Merge appends other's lines to d. The merged dataset has dates only when
// every part has them.
func (d *Dataset) Merge(other *Dataset) {
	if len(d.Lines) == 0 && d.Skipped == 0 {
		d.HasDates = other.HasDates
	} else {
		d.HasDates = d.HasDates && other.HasDates
	}
	if d.Format != other.Format {
		d.Format = ""
	}
	d.Lines = append(d.Lines, other.Lines...)
	d.Skipped += other.Skipped
}
