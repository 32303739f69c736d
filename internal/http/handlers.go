package http

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneymate/internal/core"
)

var hundred = decimal.NewFromInt(100)

type transactionView struct {
	SourceID     string `json:"sourceId"`
	Amount       string `json:"amount"`
	Direction    string `json:"type"`
	Date         string `json:"date"`
	Category     string `json:"category"`
	Counterparty string `json:"counterparty,omitempty"`
}

func toView(t core.Transaction) transactionView {
	return transactionView{
		SourceID:     t.SourceID,
		Amount:       t.Amount.String(),
		Direction:    string(t.Direction),
		Date:         t.Timestamp.Format(time.RFC3339),
		Category:     t.CategoryOrDefault(),
		Counterparty: t.Counterparty,
	}
}

// handleListTransactions serves the acknowledged transaction list with
// optional direction, date and free-text filters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	q := r.URL.Query()

	if v := sanitizeInput(q.Get("direction")); v != "" {
		dir := core.Direction(v)
		if !dir.Valid() {
			writeError(w, http.StatusBadRequest, "invalid direction: must be 'sent' or 'received'")
			return
		}
		txs = filter(txs, func(t core.Transaction) bool { return t.Direction == dir })
	}

	if v := sanitizeInput(q.Get("date")); v != "" {
		day, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: must be YYYY-MM-DD")
			return
		}
		key := core.PeriodDay.Key(day)
		txs = filter(txs, func(t core.Transaction) bool {
			return core.PeriodDay.Key(t.Timestamp) == key
		})
	}

	if v := strings.ToLower(sanitizeInput(q.Get("q"))); v != "" {
		txs = filter(txs, func(t core.Transaction) bool {
			return strings.Contains(strings.ToLower(t.Counterparty), v) ||
				strings.Contains(strings.ToLower(t.CategoryOrDefault()), v) ||
				strings.Contains(t.Amount.String(), v)
		})
	}

	// Newest first
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})

	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, toView(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": views,
		"count":        len(views),
	})
}

func filter(txs []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := txs[:0:0]
	for _, t := range txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// handleTotals serves independent income and expense sums per period.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Totals error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	type row struct {
		Period  string `json:"period"`
		Income  string `json:"income"`
		Expense string `json:"expense"`
	}
	totals := core.PeriodTotals(txs, kind)
	rows := make([]row, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, row{Period: t.PeriodKey, Income: t.Income.String(), Expense: t.Expense.String()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period": string(kind),
		"totals": rows,
	})
}

// handleMonthlySeries serves the per-month income/expense chart series.
func (s *Server) handleMonthlySeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly series error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	type point struct {
		Month   string `json:"month"`
		Income  string `json:"income"`
		Expense string `json:"expense"`
	}
	totals := core.PeriodTotals(txs, core.PeriodMonth)
	series := make([]point, 0, len(totals))
	for _, t := range totals {
		series = append(series, point{Month: t.PeriodKey, Income: t.Income.String(), Expense: t.Expense.String()})
	}

	writeJSON(w, http.StatusOK, map[string]any{"series": series})
}

// handleCategories serves the expense-by-category breakdown.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Category breakdown error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	type row struct {
		Category string `json:"category"`
		Sum      string `json:"sum"`
		Percent  string `json:"percent"`
	}
	breakdown := core.ExpenseByCategory(txs)
	rows := make([]row, 0, len(breakdown))
	for _, b := range breakdown {
		rows = append(rows, row{
			Category: b.Category,
			Sum:      b.Sum.String(),
			Percent:  b.Share.Mul(hundred).Round(1).String(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": rows})
}

// handleHighest serves the largest transaction per period, or for one
// reference date when given.
func (s *Server) handleHighest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Highest transaction error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	if v := sanitizeInput(r.URL.Query().Get("ref")); v != "" {
		ref, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ref: must be YYYY-MM-DD")
			return
		}
		tx, ok := core.HighestIn(txs, kind, ref)
		if !ok {
			writeError(w, http.StatusNotFound, "no transactions in period")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"period":      kind.Key(ref),
			"transaction": toView(tx),
		})
		return
	}

	type row struct {
		Period      string          `json:"period"`
		Transaction transactionView `json:"transaction"`
	}
	highest := core.HighestPerPeriod(txs, kind)
	rows := make([]row, 0, len(highest))
	for _, h := range highest {
		rows = append(rows, row{Period: h.PeriodKey, Transaction: toView(h.Transaction)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period":  string(kind),
		"highest": rows,
	})
}

// handleInsights serves the ordered list of spending insights.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Insights error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	insights := core.Insights(txs, s.now().UTC())
	if insights == nil {
		insights = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

// handleDashboardToday serves the deposits/transfers summary cards for
// the current day.
func (s *Server) handleDashboardToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	total := core.TotalFor(txs, core.PeriodDay, s.now().UTC())

	writeJSON(w, http.StatusOK, map[string]any{
		"date":      total.PeriodKey,
		"deposits":  total.Income.String(),
		"transfers": total.Expense.String(),
	})
}

// handleTriggerSync publishes a sync request for the worker to pick up.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync scheduling not configured")
		return
	}

	runID := uuid.NewString()
	if err := s.syncer.PublishSyncRequest(r.Context(), runID, 0); err != nil {
		slog.ErrorContext(r.Context(), "Sync request publish failed", "error", err, "run_id", runID)
		writeError(w, http.StatusInternalServerError, "failed to schedule sync")
		return
	}

	slog.InfoContext(r.Context(), "Sync requested", "run_id", runID)
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}
