package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// PeriodTotal carries independent income and expense sums for one
	// calendar period. The two are never netted against each other.
	PeriodTotal struct {
		PeriodKey string
		Income    decimal.Decimal
		Expense   decimal.Decimal
	}

	// CategoryBreakdown is one category's expense sum and its share of
	// the total expense across the input set. Share is in [0, 1].
	CategoryBreakdown struct {
		Category string
		Sum      decimal.Decimal
		Share    decimal.Decimal
	}

	// HighestTransaction is the largest transaction within one period.
	HighestTransaction struct {
		PeriodKey   string
		Transaction Transaction
	}
)

// Sanitize drops records that cannot take part in aggregation: a single
// malformed stored record is excluded, never allowed to fault a whole
// view. The input slice is not modified.
func Sanitize(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// PeriodTotals groups transactions by the given calendar window and sums
// income and expense independently. Results are sorted ascending by
// period key, suitable for chart series.
func PeriodTotals(txs []Transaction, kind PeriodKind) []PeriodTotal {
	byKey := map[string]*PeriodTotal{}
	for _, t := range Sanitize(txs) {
		key := kind.Key(t.Timestamp)
		pt, ok := byKey[key]
		if !ok {
			pt = &PeriodTotal{PeriodKey: key}
			byKey[key] = pt
		}
		switch t.Direction {
		case Received:
			pt.Income = pt.Income.Add(t.Amount)
		case Sent:
			pt.Expense = pt.Expense.Add(t.Amount)
		}
	}
	out := make([]PeriodTotal, 0, len(byKey))
	for _, pt := range byKey {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodKey < out[j].PeriodKey })
	return out
}

// TotalFor returns the income/expense totals for the period containing
// ref, e.g. "today" or "this month" when ref is the current time.
func TotalFor(txs []Transaction, kind PeriodKind, ref time.Time) PeriodTotal {
	key := kind.Key(ref)
	total := PeriodTotal{PeriodKey: key}
	for _, t := range Sanitize(txs) {
		if kind.Key(t.Timestamp) != key {
			continue
		}
		switch t.Direction {
		case Received:
			total.Income = total.Income.Add(t.Amount)
		case Sent:
			total.Expense = total.Expense.Add(t.Amount)
		}
	}
	return total
}

// HighestPerPeriod returns, for every period that has at least one
// transaction, the transaction with the maximum amount. An empty period
// simply produces no entry. Results are sorted ascending by period key.
func HighestPerPeriod(txs []Transaction, kind PeriodKind) []HighestTransaction {
	byKey := map[string]Transaction{}
	for _, t := range Sanitize(txs) {
		key := kind.Key(t.Timestamp)
		cur, ok := byKey[key]
		if !ok || t.Amount.GreaterThan(cur.Amount) {
			byKey[key] = t
		}
	}
	out := make([]HighestTransaction, 0, len(byKey))
	for key, t := range byKey {
		out = append(out, HighestTransaction{PeriodKey: key, Transaction: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodKey < out[j].PeriodKey })
	return out
}

// HighestIn returns the largest transaction in the period containing ref.
// The second return is false when the period is empty: no transactions
// means no result, not a zero record.
func HighestIn(txs []Transaction, kind PeriodKind, ref time.Time) (Transaction, bool) {
	key := kind.Key(ref)
	var best Transaction
	found := false
	for _, t := range Sanitize(txs) {
		if kind.Key(t.Timestamp) != key {
			continue
		}
		if !found || t.Amount.GreaterThan(best.Amount) {
			best = t
			found = true
		}
	}
	return best, found
}

// ExpenseByCategory sums expenses per category (absent categories fall
// back to DefaultCategory) and computes each category's share of the
// total expense. Categories appear in first-occurrence order so repeated
// runs over the same set give the same insight order. A zero expense
// total yields an empty result rather than dividing by zero.
func ExpenseByCategory(txs []Transaction) []CategoryBreakdown {
	sums := map[string]decimal.Decimal{}
	var order []string
	total := decimal.Zero
	for _, t := range Sanitize(txs) {
		if t.Direction != Sent {
			continue
		}
		cat := t.CategoryOrDefault()
		if _, ok := sums[cat]; !ok {
			order = append(order, cat)
		}
		sums[cat] = sums[cat].Add(t.Amount)
		total = total.Add(t.Amount)
	}
	if !total.IsPositive() {
		return nil
	}
	out := make([]CategoryBreakdown, 0, len(order))
	for _, cat := range order {
		out = append(out, CategoryBreakdown{
			Category: cat,
			Sum:      sums[cat],
			Share:    sums[cat].Div(total),
		})
	}
	return out
}

// TotalExpense sums all sent amounts across the set.
func TotalExpense(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range Sanitize(txs) {
		if t.Direction == Sent {
			total = total.Add(t.Amount)
		}
	}
	return total
}
