package nudge

import (
	"fmt"

	"github.com/shopspring/decimal"

	"nudgify/internal/core"
)

// Thresholds holds the tunable limits of the default rules.
type Thresholds struct {
	AverageSpend     decimal.Decimal // mean spend that counts as high
	AverageMinCount  int             // transactions needed before the mean is judged
	CategoryShare    decimal.Decimal // fraction of total that makes a category heavy
	RepeatCount      int             // visits that make a merchant a habit
	HighSpend        decimal.Decimal // single e-commerce purchase worth calling out
	LargeTransaction decimal.Decimal
	PaceDays         int // budget is spread evenly over this many days
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AverageSpend:     decimal.NewFromInt(400),
		AverageMinCount:  10,
		CategoryShare:    decimal.RequireFromString("0.25"),
		RepeatCount:      3,
		HighSpend:        decimal.NewFromInt(500),
		LargeTransaction: decimal.NewFromInt(2000),
		PaceDays:         30,
	}
}

// Archetype groups merchants whose repeat visits deserve a sharper tone.
type Archetype int

const (
	ArchetypeOther Archetype = iota
	ArchetypeFoodDelivery
	ArchetypeEcommerce
)

var archetypes = map[string]Archetype{
	"Swiggy":    ArchetypeFoodDelivery,
	"Zomato":    ArchetypeFoodDelivery,
	"Uber Eats": ArchetypeFoodDelivery,
	"Dunzo":     ArchetypeFoodDelivery,
	"Blinkit":   ArchetypeFoodDelivery,
	"Zepto":     ArchetypeFoodDelivery,
	"Amazon":    ArchetypeEcommerce,
	"Flipkart":  ArchetypeEcommerce,
	"Myntra":    ArchetypeEcommerce,
	"Meesho":    ArchetypeEcommerce,
	"Ajio":      ArchetypeEcommerce,
	"Nykaa":     ArchetypeEcommerce,
}

// ArchetypeOf classifies a normalized merchant name.
func ArchetypeOf(merchant string) Archetype {
	return archetypes[core.Normalize(merchant)]
}

// DefaultRules returns the stock rule list in evaluation order.
func DefaultRules(th Thresholds) []Rule {
	return []Rule{
		budgetBand("budget-under", core.SeveritySuccess, 0, 50,
			"Only %.1f%% of your budget used. Nicely done."),
		budgetBand("budget-steady", core.SeverityInfo, 50, 80,
			"%.1f%% of your budget used. Keep an eye on it."),
		budgetBand("budget-near", core.SeverityWarning, 80, 100,
			"%.1f%% of your budget used. Time to slow down."),
		budgetBand("budget-over", core.SeverityError, 100, -1,
			"%.1f%% of your budget used. You are over budget."),
		averageHigh(th),
		categoryHeavy(th),
		repeatMerchant(th),
		ecommerceSplurge(th),
		creditSurplus(),
		debitBleed(),
		dailyPaceOver(th),
		dailyPaceUnder(th),
		largeTransaction(th),
	}
}

// budgetBand fires when the budget percentage lies in [lo, hi). hi < 0 means
// unbounded. No band fires when the budget is zero.
func budgetBand(name string, sev core.Severity, lo, hi float64, format string) Rule {
	return When(name, sev,
		func(in Input) bool {
			p := in.Summary.BudgetUsed
			return in.Summary.BudgetKnown && p >= lo && (hi < 0 || p < hi)
		},
		func(in Input) string { return fmt.Sprintf(format, in.Summary.BudgetUsed) },
	)
}

func averageHigh(th Thresholds) Rule {
	return When("average-high", core.SeverityInfo,
		func(in Input) bool {
			return in.Summary.Counted > th.AverageMinCount && in.Summary.Mean.GreaterThan(th.AverageSpend)
		},
		func(in Input) string {
			return fmt.Sprintf("Average spend per transaction is %s. Maybe stop buying dopamine on EMI?",
				core.FormatMoney(in.Summary.Mean))
		},
	)
}

type categoryShare struct {
	name  string
	share decimal.Decimal
}

func categoryHeavy(th Thresholds) Rule {
	return Each("category-heavy",
		func(in Input) []categoryShare {
			total := in.Summary.Total
			if !total.IsPositive() {
				return nil
			}
			var out []categoryShare
			for _, c := range in.Summary.ByCategory {
				if share := c.Amount.Div(total); share.GreaterThan(th.CategoryShare) {
					out = append(out, categoryShare{name: c.Name, share: share})
				}
			}
			return out
		},
		func(categoryShare) core.Severity { return core.SeverityWarning },
		func(c categoryShare) string {
			return fmt.Sprintf("%s takes %s%% of your spending.", c.name, c.share.Mul(decimal.NewFromInt(100)).Round(0))
		},
	)
}

func repeatMerchant(th Thresholds) Rule {
	r := Each("repeat-merchant",
		func(in Input) []core.MerchantCount {
			var out []core.MerchantCount
			for _, m := range in.Summary.ByMerchant {
				if m.Count >= th.RepeatCount && m.Merchant != core.UnknownMerchant {
					out = append(out, m)
				}
			}
			return out
		},
		func(m core.MerchantCount) core.Severity {
			if ArchetypeOf(m.Merchant) == ArchetypeOther {
				return core.SeverityInfo
			}
			return core.SeverityWarning
		},
		func(m core.MerchantCount) string {
			switch ArchetypeOf(m.Merchant) {
			case ArchetypeFoodDelivery:
				return fmt.Sprintf("%s %d times? It's got your heart AND your wallet. Time to cook?", m.Merchant, m.Count)
			case ArchetypeEcommerce:
				return fmt.Sprintf("%d orders from %s. Does the cart really need all that?", m.Count, m.Merchant)
			default:
				return fmt.Sprintf("You paid %s %d times.", m.Merchant, m.Count)
			}
		},
	)
	r.CountsOnly = true
	return r
}

func ecommerceSplurge(th Thresholds) Rule {
	return Each("ecommerce-splurge",
		func(in Input) []string {
			seen := make(map[string]bool)
			var out []string
			for _, tx := range in.Transactions {
				if !tx.Amount.Valid || !tx.Amount.Decimal.GreaterThan(th.HighSpend) {
					continue
				}
				if ArchetypeOf(tx.Merchant) != ArchetypeEcommerce || seen[tx.Merchant] {
					continue
				}
				seen[tx.Merchant] = true
				out = append(out, tx.Merchant)
			}
			return out
		},
		func(string) core.Severity { return core.SeverityInfo },
		func(m string) string {
			return fmt.Sprintf("Dropped big bucks on %s? Hope it wasn't another ring light.", m)
		},
	)
}

func creditSurplus() Rule {
	return When("credit-surplus", core.SeverityInfo,
		func(in Input) bool { return in.Summary.ByType.Credit.GreaterThan(in.Summary.ByType.Debit) },
		func(in Input) string {
			return fmt.Sprintf("More came in (%s) than went out (%s). Good time to save the difference.",
				core.FormatMoney(in.Summary.ByType.Credit), core.FormatMoney(in.Summary.ByType.Debit))
		},
	)
}

func debitBleed() Rule {
	two := decimal.NewFromInt(2)
	return When("debit-bleed", core.SeverityError,
		func(in Input) bool {
			t := in.Summary.ByType
			return t.Debit.IsPositive() && t.Debit.GreaterThan(t.Credit.Mul(two))
		},
		func(in Input) string {
			return fmt.Sprintf("Spending (%s) is more than twice what came in (%s).",
				core.FormatMoney(in.Summary.ByType.Debit), core.FormatMoney(in.Summary.ByType.Credit))
		},
	)
}

// dailyLimit spreads the budget evenly over th.PaceDays.
func dailyLimit(th Thresholds, budget decimal.Decimal) decimal.Decimal {
	days := th.PaceDays
	if days <= 0 {
		days = 30
	}
	return budget.Div(decimal.NewFromInt(int64(days)))
}

func dailyPaceOver(th Thresholds) Rule {
	return When("daily-pace-over", core.SeverityError,
		func(in Input) bool {
			return in.Budget.IsPositive() && in.Summary.TodayTotal.GreaterThan(dailyLimit(th, in.Budget))
		},
		func(in Input) string {
			return fmt.Sprintf("You spent %s today, above your daily pace of %s.",
				core.FormatMoney(in.Summary.TodayTotal), core.FormatMoney(dailyLimit(th, in.Budget)))
		},
	)
}

func dailyPaceUnder(th Thresholds) Rule {
	return When("daily-pace-under", core.SeverityInfo,
		func(in Input) bool {
			today := in.Summary.TodayTotal
			return in.Budget.IsPositive() && today.IsPositive() && today.LessThanOrEqual(dailyLimit(th, in.Budget))
		},
		func(in Input) string {
			return fmt.Sprintf("You spent %s today, within your daily pace of %s.",
				core.FormatMoney(in.Summary.TodayTotal), core.FormatMoney(dailyLimit(th, in.Budget)))
		},
	)
}

func largeTransaction(th Thresholds) Rule {
	return When("large-transaction", core.SeverityWarning,
		func(in Input) bool {
			tx, ok := largest(in.Transactions)
			return ok && tx.Amount.Decimal.GreaterThan(th.LargeTransaction)
		},
		func(in Input) string {
			tx, _ := largest(in.Transactions)
			return fmt.Sprintf("Biggest spend: %s at %s. Rent or regrets?", core.FormatMoney(tx.Amount.Decimal), tx.Merchant)
		},
	)
}

// largest returns the first transaction holding the maximum valid amount.
func largest(txns []core.Transaction) (core.Transaction, bool) {
	var best core.Transaction
	found := false
	for _, tx := range txns {
		if !tx.Amount.Valid {
			continue
		}
		if !found || tx.Amount.Decimal.GreaterThan(best.Amount.Decimal) {
			best, found = tx, true
		}
	}
	return best, found
}
