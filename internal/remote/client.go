// Package remote implements the HTTP client for the remote transaction
// store and classifies its faults into the auth/transient/validation
// taxonomy the pipeline relies on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneymate/internal/core"
)

// record is the wire shape of one transaction.
type record struct {
	SourceID     string          `json:"sourceId"`
	Amount       decimal.Decimal `json:"amount"`
	Type         string          `json:"type"` // "sent" | "received"
	Date         time.Time       `json:"date"`
	Category     string          `json:"category,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
}

func toRecord(tx core.Transaction) record {
	return record{
		SourceID:     tx.SourceID,
		Amount:       tx.Amount,
		Type:         string(tx.Direction),
		Date:         tx.Timestamp,
		Category:     tx.Category,
		Counterparty: tx.Counterparty,
	}
}

func (r record) transaction() core.Transaction {
	return core.Transaction{
		SourceID:     r.SourceID,
		Amount:       r.Amount,
		Timestamp:    r.Date,
		Direction:    core.Direction(r.Type),
		Category:     r.Category,
		Counterparty: r.Counterparty,
	}
}

// Client talks to the remote store REST API. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

// NewClient builds a store client. token supplies the current session
// token per request; pass nil when the store is unauthenticated.
func NewClient(baseURL string, token func() string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		token:   token,
	}
}

// Submit implements Store. A connection-level failure is reported as
// transient; response codes are classified per the taxonomy.
func (c *Client) Submit(ctx context.Context, tx core.Transaction) error {
	body, err := json.Marshal(toRecord(tx))
	if err != nil {
		return fmt.Errorf("marshal transaction %s: %w", tx.SourceID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer drain(resp)

	return classifyStatus(resp.StatusCode)
}

// List implements Store, fetching the session-scoped transaction set.
func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer drain(resp)

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode transaction list: %w", err)
	}
	out := make([]core.Transaction, 0, len(records))
	for _, r := range records {
		out = append(out, r.transaction())
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token == nil {
		return
	}
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
