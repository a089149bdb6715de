package domain

// DateRange is the first and last sale date of a log
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NameCount is a product or category with the number of lines naming it
type NameCount struct {
	Name  string `json:"name"`
	Lines int    `json:"lines"`
}

// DataSummary describes an uploaded sales log before any analysis
type DataSummary struct {
	Source            string             `json:"source"`
	Format            string             `json:"format,omitempty"`
	TotalRows         int                `json:"total_rows"`
	SkippedRows       int                `json:"skipped_rows"`
	DateRange         *DateRange         `json:"date_range,omitempty"`
	TotalTransactions int                `json:"total_transactions"`
	TotalProducts     int                `json:"total_products"`
	TotalCategories   int                `json:"total_categories"`
	TopProducts       []NameCount        `json:"top_products"`
	TopCategories     []NameCount        `json:"top_categories"`
	TotalRevenue      float64            `json:"total_revenue"`
	AvgLineValue      float64            `json:"avg_line_value"`
	AvgOrderValue     float64            `json:"avg_order_value"`
	RevenueByCategory map[string]float64 `json:"revenue_by_category"`
}
