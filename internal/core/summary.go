package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// MerchantCount is the number of transactions seen for one merchant.
type MerchantCount struct {
	Merchant string `json:"merchant"`
	Count    int    `json:"count"`
}

// DayAmount is the summed spend for one calendar day.
type DayAmount struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// Point is one bar of the per-transaction amount chart.
type Point struct {
	Index    int             `json:"index"`
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
}

// TypeTotals holds summed amounts per transaction direction.
type TypeTotals struct {
	Debit    decimal.Decimal `json:"debit"`
	Credit   decimal.Decimal `json:"credit"`
	Reversal decimal.Decimal `json:"reversal"`
}

// Summary is a snapshot of every aggregate computed for one run.
type Summary struct {
	Count        int              `json:"count"`
	Counted      int              `json:"counted"` // transactions with a valid amount
	Total        decimal.Decimal  `json:"total"`
	Mean         decimal.Decimal  `json:"mean"`
	HasData      bool             `json:"has_data"`
	ByCategory   []CategoryAmount `json:"by_category"`
	ByMerchant   []MerchantCount  `json:"by_merchant"`
	ByType       TypeTotals       `json:"by_type"`
	ByDay        []DayAmount      `json:"by_day"`
	Today        Date             `json:"today"`
	TodayTotal   decimal.Decimal  `json:"today_total"`
	Budget       decimal.Decimal  `json:"budget"`
	BudgetUsed   float64          `json:"budget_used_percent"`
	BudgetKnown  bool             `json:"budget_defined"`
	TopMerchants []MerchantCount  `json:"top_merchants"`
	Series       []Point          `json:"series"`
}

// MerchantCountOf returns how many times merchant appears in the summary.
func (s Summary) MerchantCountOf(merchant string) int {
	for _, m := range s.ByMerchant {
		if m.Merchant == merchant {
			return m.Count
		}
	}
	return 0
}
