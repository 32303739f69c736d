package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		SourceID:  "msg-1",
		Amount:    decimal.NewFromInt(1500),
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Direction: Sent,
	}
}

func TestTransactionValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(tx *Transaction) {}, nil},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad direction", func(tx *Transaction) { tx.Direction = "transferred" }, ErrInvalidDirection},
		{"empty direction", func(tx *Transaction) { tx.Direction = "" }, ErrInvalidDirection},
		{"zero timestamp", func(tx *Transaction) { tx.Timestamp = time.Time{} }, ErrMissingTimestamp},
		{"blank source id", func(tx *Transaction) { tx.SourceID = "  " }, ErrMissingSourceID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			if err := tx.Validate(); err != tc.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCategoryOrDefault(t *testing.T) {
	tx := validTransaction()
	if got := tx.CategoryOrDefault(); got != DefaultCategory {
		t.Fatalf("empty category = %q, want %q", got, DefaultCategory)
	}
	tx.Category = "Transport"
	if got := tx.CategoryOrDefault(); got != "Transport" {
		t.Fatalf("category = %q, want Transport", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,500", "1500", true},
		{"2000", "2000", true},
		{"2,000.50", "2000.5", true},
		{"500.00", "500", true},
		{"0", "", false},
		{"0.00", "", false},
		{"-10", "", false},
		{"+10", "", false},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseAmount(%q) unexpected error: %v", tc.in, err)
				continue
			}
			if got.String() != tc.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
		} else if err == nil {
			t.Errorf("ParseAmount(%q) expected error, got %s", tc.in, got)
		}
	}
}

func TestFormatShillings(t *testing.T) {
	if got := FormatShillings(decimal.NewFromInt(1500)); got != "Ksh 1500" {
		t.Fatalf("whole amount = %q", got)
	}
	if got := FormatShillings(decimal.NewFromFloat(99.5)); got != "Ksh 99.50" {
		t.Fatalf("fractional amount = %q", got)
	}
}

func TestPeriodKeys(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	if got := PeriodDay.Key(ts); got != "2024-01-02" {
		t.Errorf("day key = %q", got)
	}
	if got := PeriodMonth.Key(ts); got != "2024-01" {
		t.Errorf("month key = %q", got)
	}
	if got := PeriodYear.Key(ts); got != "2024" {
		t.Errorf("year key = %q", got)
	}
}

func TestPreviousMonthKey(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), "2024-02"},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "2023-12"},
		{time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "2024-06"},
	}
	for _, tc := range cases {
		if got := PreviousMonthKey(tc.now); got != tc.want {
			t.Errorf("PreviousMonthKey(%s) = %q, want %q", tc.now.Format("2006-01-02"), got, tc.want)
		}
	}
}
