package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneymate/internal/core"
)

func sampleTx() core.Transaction {
	return core.Transaction{
		SourceID:  "src-1",
		Amount:    decimal.NewFromInt(1500),
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Direction: core.Sent,
		Category:  "Transport",
	}
}

func TestSubmitClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusOK, nil},
		{http.StatusCreated, nil},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusBadGateway, ErrTransient},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(srv.URL, nil)
		err := c.Submit(context.Background(), sampleTx())
		srv.Close()

		if tc.want == nil {
			if err != nil {
				t.Errorf("status %d: unexpected error %v", tc.status, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: error %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestSubmitSendsRecord(t *testing.T) {
	var got record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, func() string { return "tok-1" })
	if err := c.Submit(context.Background(), sampleTx()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.SourceID != "src-1" || got.Type != "sent" {
		t.Errorf("record = %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("amount = %s", got.Amount)
	}
}

func TestSubmitNetworkFaultIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, nil)
	err := c.Submit(context.Background(), sampleTx())
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("error %v, want transient", err)
	}
}

func TestListRoundTrip(t *testing.T) {
	txs := []core.Transaction{sampleTx()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		records := make([]record, len(txs))
		for i, tx := range txs {
			records[i] = toRecord(tx)
		}
		json.NewEncoder(w).Encode(records)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	got, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(got))
	}
	if got[0].SourceID != "src-1" || got[0].Direction != core.Sent {
		t.Errorf("transaction = %+v", got[0])
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("amount = %s", got[0].Amount)
	}
}

func TestListAuthFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	if _, err := c.List(context.Background()); !errors.Is(err, ErrAuth) {
		t.Fatalf("error %v, want auth", err)
	}
}
