package core

import "time"

const (
	PeriodDay   PeriodKind = "day"
	PeriodMonth PeriodKind = "month"
	PeriodYear  PeriodKind = "year"
)

// PeriodKind is a calendar grouping window used for aggregation.
type PeriodKind string

func (k PeriodKind) Valid() bool {
	switch k {
	case PeriodDay, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// Key returns the grouping key for t under this kind, e.g. "2024-01-02",
// "2024-01" or "2024". Keys sort chronologically as plain strings.
func (k PeriodKind) Key(t time.Time) string {
	switch k {
	case PeriodDay:
		return t.Format("2006-01-02")
	case PeriodMonth:
		return t.Format("2006-01")
	case PeriodYear:
		return t.Format("2006")
	}
	return ""
}

// PreviousMonthKey returns the month key immediately before now's month.
// It anchors to the first of the month so late-month dates cannot skip
// a short month.
func PreviousMonthKey(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return PeriodMonth.Key(first.AddDate(0, -1, 0))
}
