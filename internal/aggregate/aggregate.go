// Package aggregate computes summary statistics over categorized transactions.
//
// Every function tolerates empty input and ignores records whose amount is
// null. None of them mutate their arguments.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"nudgify/internal/core"
)

// DefaultTopMerchants is the size of the merchant share series.
const DefaultTopMerchants = 5

var hundred = decimal.NewFromInt(100)

// Total sums every valid amount.
func Total(txns []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		if tx.Amount.Valid {
			total = total.Add(tx.Amount.Decimal)
		}
	}
	return total
}

// Counted returns how many records carry a valid amount.
func Counted(txns []core.Transaction) int {
	n := 0
	for _, tx := range txns {
		if tx.Amount.Valid {
			n++
		}
	}
	return n
}

// Mean is the arithmetic mean of valid amounts. The boolean is false (and the
// mean zero) when there is nothing to average.
func Mean(txns []core.Transaction) (decimal.Decimal, bool) {
	n := Counted(txns)
	if n == 0 {
		return decimal.Zero, false
	}
	return Total(txns).Div(decimal.NewFromInt(int64(n))), true
}

// ByCategory sums valid amounts per category. Categories without a valid
// amount are absent from the result.
func ByCategory(txns []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txns {
		if !tx.Amount.Valid {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = core.FallbackCategory
		}
		out[cat] = out[cat].Add(tx.Amount.Decimal)
	}
	return out
}

// ByMerchant counts occurrences of each merchant across all records.
func ByMerchant(txns []core.Transaction) map[string]int {
	out := make(map[string]int)
	for _, tx := range txns {
		out[tx.Merchant]++
	}
	return out
}

// ByType sums valid amounts per transaction direction. Unknown types are not
// attributed to any bucket.
func ByType(txns []core.Transaction) core.TypeTotals {
	totals := core.TypeTotals{Debit: decimal.Zero, Credit: decimal.Zero, Reversal: decimal.Zero}
	for _, tx := range txns {
		if !tx.Amount.Valid {
			continue
		}
		switch tx.Type {
		case core.Debit:
			totals.Debit = totals.Debit.Add(tx.Amount.Decimal)
		case core.Credit:
			totals.Credit = totals.Credit.Add(tx.Amount.Decimal)
		case core.Reversal:
			totals.Reversal = totals.Reversal.Add(tx.Amount.Decimal)
		}
	}
	return totals
}

// OnDate sums valid amounts dated exactly on date.
func OnDate(txns []core.Transaction, date core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		if tx.Amount.Valid && tx.Date.SameDay(date) {
			total = total.Add(tx.Amount.Decimal)
		}
	}
	return total
}

// ByDay sums valid amounts per calendar day, oldest first. Records without a
// date are skipped.
func ByDay(txns []core.Transaction) []core.DayAmount {
	sums := make(map[string]*core.DayAmount)
	for _, tx := range txns {
		if !tx.Amount.Valid || tx.Date.IsEmpty() {
			continue
		}
		key := tx.Date.String()
		d, ok := sums[key]
		if !ok {
			d = &core.DayAmount{Date: tx.Date, Amount: decimal.Zero}
			sums[key] = d
		}
		d.Amount = d.Amount.Add(tx.Amount.Decimal)
	}
	out := make([]core.DayAmount, 0, len(sums))
	for _, d := range sums {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// PercentOfBudget returns total/budget*100. It reports false when budget is
// zero, where the percentage is undefined.
func PercentOfBudget(total, budget decimal.Decimal) (float64, bool) {
	if !budget.IsPositive() {
		return 0, false
	}
	return total.Div(budget).Mul(hundred).InexactFloat64(), true
}

// MerchantCounts lists ByMerchant ordered by count descending, then name.
func MerchantCounts(txns []core.Transaction) []core.MerchantCount {
	counts := ByMerchant(txns)
	out := make([]core.MerchantCount, 0, len(counts))
	for m, c := range counts {
		out = append(out, core.MerchantCount{Merchant: m, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}

// TopMerchants is the merchant share series: the n most frequent merchants.
// n <= 0 means DefaultTopMerchants.
func TopMerchants(txns []core.Transaction, n int) []core.MerchantCount {
	if n <= 0 {
		n = DefaultTopMerchants
	}
	all := MerchantCounts(txns)
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Series is the per-transaction amount series in input order. Records with a
// null amount are omitted; Index still refers to the input position.
func Series(txns []core.Transaction) []core.Point {
	out := make([]core.Point, 0, len(txns))
	for i, tx := range txns {
		if !tx.Amount.Valid {
			continue
		}
		out = append(out, core.Point{Index: i, Merchant: tx.Merchant, Amount: tx.Amount.Decimal})
	}
	return out
}

// CategoryAmounts lists ByCategory ordered by amount descending, then name.
func CategoryAmounts(txns []core.Transaction) []core.CategoryAmount {
	sums := ByCategory(txns)
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amt := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summarize computes every aggregate in one snapshot.
func Summarize(txns []core.Transaction, budget decimal.Decimal, today core.Date) core.Summary {
	mean, ok := Mean(txns)
	pct, known := PercentOfBudget(Total(txns), budget)
	return core.Summary{
		Count:        len(txns),
		Counted:      Counted(txns),
		Total:        Total(txns),
		Mean:         mean,
		HasData:      ok,
		ByCategory:   CategoryAmounts(txns),
		ByMerchant:   MerchantCounts(txns),
		ByType:       ByType(txns),
		ByDay:        ByDay(txns),
		Today:        today,
		TodayTotal:   OnDate(txns, today),
		Budget:       budget,
		BudgetUsed:   pct,
		BudgetKnown:  known,
		TopMerchants: TopMerchants(txns, DefaultTopMerchants),
		Series:       Series(txns),
	}
}
