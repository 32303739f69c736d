package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// concentrationThreshold flags categories above this share of total
// expense.
var concentrationThreshold = decimal.NewFromFloat(0.30)

// savingsThreshold is the total expense above which a savings
// suggestion fires, in whole currency units.
var savingsThreshold = decimal.NewFromInt(5000)

var savingsRate = decimal.NewFromFloat(0.10)

var oneHundred = decimal.NewFromInt(100)

// Insights derives the textual spending insights for a transaction set.
// The kinds are independent and additive; emission order is fixed:
// category concentration first (in category first-occurrence order),
// then the month-over-month trend, then the savings suggestion. An
// empty set yields no insights.
//
// now anchors the "this month"/"last month" comparison; it is the only
// place computation time enters the result.
func Insights(txs []Transaction, now time.Time) []string {
	var out []string

	breakdown := ExpenseByCategory(txs)
	for _, b := range breakdown {
		if b.Share.GreaterThan(concentrationThreshold) {
			pct := b.Share.Mul(oneHundred).Round(1)
			out = append(out, fmt.Sprintf("You spent %s%% on %s. Consider reducing this.", pct.StringFixed(1), b.Category))
		}
	}

	if trend, ok := monthTrend(txs, now); ok {
		out = append(out, trend)
	}

	total := TotalExpense(txs)
	if total.GreaterThan(savingsThreshold) {
		reserve := total.Mul(savingsRate).Round(0)
		out = append(out, fmt.Sprintf("Consider saving 10%% of your expenses (~%s) for future use.", FormatShillings(reserve)))
	}

	return out
}

// monthTrend compares the current calendar month's expense against the
// previous one. A zero prior month suppresses the insight entirely: a
// percentage change against zero is undefined.
func monthTrend(txs []Transaction, now time.Time) (string, bool) {
	currentKey := PeriodMonth.Key(now)
	previousKey := PreviousMonthKey(now)

	current, previous := decimal.Zero, decimal.Zero
	for _, t := range Sanitize(txs) {
		if t.Direction != Sent {
			continue
		}
		switch PeriodMonth.Key(t.Timestamp) {
		case currentKey:
			current = current.Add(t.Amount)
		case previousKey:
			previous = previous.Add(t.Amount)
		}
	}
	if !previous.IsPositive() {
		return "", false
	}

	change := current.Sub(previous).Div(previous).Mul(oneHundred).Round(1)
	if change.IsPositive() {
		return fmt.Sprintf("Your spending increased by %s%% this month.", change.StringFixed(1)), true
	}
	return fmt.Sprintf("You saved %s%% compared to last month.", change.Abs().StringFixed(1)), true
}
