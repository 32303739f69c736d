package parser

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneymate/internal/core"
	"moneymate/internal/sms"
)

var receipt = time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)

func mpesa(body string) sms.Message {
	return sms.Message{Sender: "MPESA", Body: body, ReceivedAt: receipt}
}

func TestParseSentMessage(t *testing.T) {
	tx, ok := Parse(mpesa("Ksh 1,500 sent to Jane on 1st Jan 2024"))
	if !ok {
		t.Fatal("expected a record")
	}
	if !tx.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("amount = %s, want 1500", tx.Amount)
	}
	if tx.Direction != core.Sent {
		t.Errorf("direction = %q, want sent", tx.Direction)
	}
	if tx.Counterparty != "Jane" {
		t.Errorf("counterparty = %q, want Jane", tx.Counterparty)
	}
	if !tx.Timestamp.Equal(receipt) {
		t.Errorf("timestamp = %s, want the receipt timestamp", tx.Timestamp)
	}
}

func TestParseReceivedMessage(t *testing.T) {
	tx, ok := Parse(mpesa("Ksh 2,000 received on 2nd Jan 2024"))
	if !ok {
		t.Fatal("expected a record")
	}
	if !tx.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("amount = %s, want 2000", tx.Amount)
	}
	if tx.Direction != core.Received {
		t.Errorf("direction = %q, want received", tx.Direction)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	msg := mpesa("Ksh 1,500 sent to Jane on 1st Jan 2024")
	a, ok1 := Parse(msg)
	b, ok2 := Parse(msg)
	if !ok1 || !ok2 {
		t.Fatal("expected records from both parses")
	}
	if a.SourceID != b.SourceID || !a.Amount.Equal(b.Amount) || a.Direction != b.Direction {
		t.Fatalf("parse not deterministic: %+v vs %+v", a, b)
	}
}

func TestParseRejectsUnknownMessages(t *testing.T) {
	cases := []sms.Message{
		{Sender: "BANKALERT", Body: "Your balance is low", ReceivedAt: receipt},
		mpesa("Your balance is low"),                       // no amount
		mpesa("Ksh 500 moved somewhere on 1st Jan 2024"),   // no direction keyword
		mpesa("Ksh 0 sent to Jane on 1st Jan 2024"),        // non-positive amount
		{Sender: "MPESA", Body: "Ksh 500 sent to Jane"},    // no receipt ts, no text date
	}
	for i, msg := range cases {
		if tx, ok := Parse(msg); ok {
			t.Errorf("case %d: expected rejection, got %+v", i, tx)
		}
	}
}

func TestParseTextDateFallback(t *testing.T) {
	msg := sms.Message{Sender: "MPESA", Body: "Ksh 750 sent to Bob on 3rd Feb 2024"}
	tx, ok := Parse(msg)
	if !ok {
		t.Fatal("expected a record via text-date fallback")
	}
	want := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	if !tx.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", tx.Timestamp, want)
	}
}

func TestParseISOCodeVariant(t *testing.T) {
	tx, ok := Parse(mpesa("You have received KES 2,000 from John Doe on 2/1/24"))
	if !ok {
		t.Fatal("expected a record from the newer format")
	}
	if !tx.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("amount = %s, want 2000", tx.Amount)
	}
	if tx.Direction != core.Received {
		t.Errorf("direction = %q, want received", tx.Direction)
	}
	if tx.Counterparty != "John Doe" {
		t.Errorf("counterparty = %q", tx.Counterparty)
	}
}

func TestParseISOCodeTextDateFallback(t *testing.T) {
	msg := sms.Message{Sender: "MPESA", Body: "You have received KES 2,000 from John Doe on 2/1/24"}
	tx, ok := Parse(msg)
	if !ok {
		t.Fatal("expected a record via the numeric-date fallback")
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !tx.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", tx.Timestamp, want)
	}
}

func TestParseConfirmationCodeVariant(t *testing.T) {
	body := "QGH7XK91 Confirmed. Ksh500.00 sent to Acme Till 99201 on 4/3/24. New M-PESA balance is Ksh1,200.00"
	tx, ok := Parse(mpesa(body))
	if !ok {
		t.Fatal("expected a record from the confirmation-code format")
	}
	// The transaction amount, not the trailing balance.
	if !tx.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("amount = %s, want 500", tx.Amount)
	}
	if tx.Category != "Shopping" {
		t.Errorf("category = %q, want Shopping", tx.Category)
	}
}

func TestParseCategoryHeuristics(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"Ksh 100 sent to Safaricom for airtime on 1st Jan 2024", "Airtime"},
		{"Ksh 900 Withdraw from Agent 1234 on 1st Jan 2024", "Cash Withdrawal"},
		{"Ksh 300 paid to Paybill 220220 on 1st Jan 2024", "Bills"},
		{"Ksh 300 sent to Jane on 1st Jan 2024", ""},
	}
	for _, tc := range cases {
		tx, ok := Parse(mpesa(tc.body))
		if !ok {
			t.Errorf("Parse(%q) rejected", tc.body)
			continue
		}
		if tx.Category != tc.want {
			t.Errorf("Parse(%q) category = %q, want %q", tc.body, tx.Category, tc.want)
		}
	}
}

func TestSourceID(t *testing.T) {
	withID := sms.Message{ID: "msg-42", Body: "whatever"}
	if got := SourceID(withID); got != "msg-42" {
		t.Fatalf("SourceID with message id = %q", got)
	}

	a := sms.Message{Body: "Ksh 100  sent to   Jane on 1st Jan 2024", ReceivedAt: receipt}
	b := sms.Message{Body: "ksh 100 sent to jane on 1st jan 2024", ReceivedAt: receipt}
	if SourceID(a) != SourceID(b) {
		t.Error("whitespace/case normalization should give equal hashes")
	}

	c := sms.Message{Body: a.Body, ReceivedAt: receipt.Add(time.Hour)}
	if SourceID(a) == SourceID(c) {
		t.Error("different receipt timestamps should give different hashes")
	}
}

func TestParseBatchSkipsMalformed(t *testing.T) {
	msgs := []sms.Message{
		mpesa("Your balance is low"),
		mpesa("Ksh 1,500 sent to Jane on 1st Jan 2024"),
		mpesa("Ksh 2,000 received on 2nd Jan 2024"),
	}
	got := ParseBatch(msgs)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}
