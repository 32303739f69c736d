package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// DefaultCategory is the label used for transactions without a
// recognized category when aggregating.
const DefaultCategory = "Other"

type (
	// Direction says whether money left (sent) or arrived (received).
	Direction string

	// Transaction is the sole core entity: one financial movement
	// extracted from exactly one source message. Financial fields are
	// immutable after creation; only delivery state (tracked in storage)
	// changes afterwards.
	Transaction struct {
		SourceID     string
		Amount       decimal.Decimal
		Timestamp    time.Time
		Direction    Direction
		Category     string // optional; empty means DefaultCategory
		Counterparty string // informational only
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrMissingSourceID  = errors.New("missing source id")
)

func (d Direction) Valid() bool {
	switch d {
	case Sent, Received:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if t.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if strings.TrimSpace(t.SourceID) == "" {
		return ErrMissingSourceID
	}
	return nil
}

// CategoryOrDefault returns the transaction's category, substituting
// DefaultCategory for empty or blank labels.
func (t Transaction) CategoryOrDefault() string {
	c := strings.TrimSpace(t.Category)
	if c == "" {
		return DefaultCategory
	}
	return c
}
