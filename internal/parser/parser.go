// Package parser turns raw mobile-money confirmation messages into
// candidate transaction records. Every failure is a silent skip: a
// malformed message yields no record and never aborts the batch it
// arrived in.
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"moneymate/internal/core"
	"moneymate/internal/sms"
)

// signature is the content marker of the tracked notification family.
const signature = "m-pesa"

var knownSenders = map[string]struct{}{
	"MPESA":  {},
	"M-PESA": {},
}

// Matches is the fast filter applied before any extraction work: only
// messages carrying the family signature in the body or coming from a
// known sender id are worth running the templates over.
func Matches(msg sms.Message) bool {
	if _, ok := knownSenders[strings.ToUpper(strings.TrimSpace(msg.Sender))]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(msg.Body), signature)
}

// Parse extracts a validated transaction from one raw message, or
// reports ok=false when the message does not yield one.
//
// Templates are tried in order as alternatives; the first whose amount
// pattern matches wins and its remaining patterns are committed to. The
// message's receipt timestamp is preferred over any date found in the
// text, which is used only as a fallback (text dates carry ambiguous
// ordinal forms and locale variance).
func Parse(msg sms.Message) (core.Transaction, bool) {
	if !Matches(msg) {
		return core.Transaction{}, false
	}
	for _, tpl := range templates {
		m := tpl.amount.FindStringSubmatch(msg.Body)
		if m == nil {
			continue
		}
		return tpl.extract(msg, m[1])
	}
	return core.Transaction{}, false
}

func (tpl template) extract(msg sms.Message, amountToken string) (core.Transaction, bool) {
	amount, err := core.ParseAmount(amountToken)
	if err != nil {
		return core.Transaction{}, false
	}

	dir, ok := direction(msg.Body)
	if !ok {
		// Never guess a direction.
		return core.Transaction{}, false
	}

	ts := msg.ReceivedAt
	if ts.IsZero() {
		ts, ok = tpl.textDate(msg.Body)
		if !ok {
			return core.Transaction{}, false
		}
	}

	tx := core.Transaction{
		SourceID:     SourceID(msg),
		Amount:       amount,
		Timestamp:    ts,
		Direction:    dir,
		Category:     category(msg.Body),
		Counterparty: tpl.counterpartyFrom(msg.Body),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, false
	}
	return tx, true
}

func direction(body string) (core.Direction, bool) {
	lower := strings.ToLower(body)
	for _, kw := range sentKeywords {
		if strings.Contains(lower, kw) {
			return core.Sent, true
		}
	}
	for _, kw := range receivedKeywords {
		if strings.Contains(lower, kw) {
			return core.Received, true
		}
	}
	return "", false
}

// textDate extracts and parses the free-text date, normalizing ordinal
// day suffixes ("1st" -> "1") before trying the template's layouts.
func (tpl template) textDate(body string) (time.Time, bool) {
	if tpl.date == nil {
		return time.Time{}, false
	}
	m := tpl.date.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}, false
	}
	raw := ordinalSuffix.ReplaceAllString(m[1], "$1")
	for _, layout := range tpl.dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (tpl template) counterpartyFrom(body string) string {
	if tpl.counterparty == nil {
		return ""
	}
	m := tpl.counterparty.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func category(body string) string {
	lower := strings.ToLower(body)
	for _, rule := range categoryRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category
		}
	}
	return ""
}

// SourceID derives the deduplication key for a message. The message's
// own id wins when the source supplies one; otherwise the key is a
// stable hash of the normalized body plus the receipt timestamp, so
// re-parsing the same message is idempotent.
func SourceID(msg sms.Message) string {
	if id := strings.TrimSpace(msg.ID); id != "" {
		return id
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(msg.Body), " "))
	h := sha256.New()
	h.Write([]byte(normalized))
	if !msg.ReceivedAt.IsZero() {
		h.Write([]byte("|" + msg.ReceivedAt.UTC().Format(time.RFC3339)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParseBatch runs Parse over a whole batch, keeping only the messages
// that produced a record.
func ParseBatch(msgs []sms.Message) []core.Transaction {
	out := make([]core.Transaction, 0, len(msgs))
	for _, msg := range msgs {
		if tx, ok := Parse(msg); ok {
			out = append(out, tx)
		}
	}
	return out
}
