package parser

import "regexp"

// template is one extraction variant for a historical message format.
// Variants are tried in order and the first one whose amount pattern
// matches wins; older and newer formats stay parseable side by side and
// new formats are supported by appending a variant, never by editing an
// existing one.
type template struct {
	name string

	// amount's first capture group is the numeric token, grouping
	// separators included.
	amount *regexp.Regexp

	// date's first capture group is the free-text date. Optional; used
	// only when the message carries no receipt timestamp.
	date        *regexp.Regexp
	dateLayouts []string

	// counterparty's first capture group names the other party. Optional.
	counterparty *regexp.Regexp
}

// The known format family, oldest first.
var templates = []template{
	{
		// "Ksh 1,500.00 sent to Jane Doe on 1st Jan 2024"
		name:         "spaced-ordinal",
		amount:       regexp.MustCompile(`(?i)Ksh (\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
		date:         regexp.MustCompile(`(?i)on (\d{1,2}(?:st|nd|rd|th) \w+ \d{4})`),
		dateLayouts:  []string{"2 Jan 2006", "2 January 2006"},
		counterparty: regexp.MustCompile(`(?i)(?:sent to|paid to|received from) (.*?) on `),
	},
	{
		// "You have received KES 2,000 from John Doe on 2/1/24"
		// Newer messages switched the currency marker to the ISO code.
		name:         "iso-code",
		amount:       regexp.MustCompile(`(?i)KES\.? (\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
		date:         regexp.MustCompile(`(?i)on (\d{1,2}/\d{1,2}/\d{2,4})`),
		dateLayouts:  []string{"2/1/06", "2/1/2006"},
		counterparty: regexp.MustCompile(`(?i)(?:sent to|paid to|from) (.*?) on `),
	},
	{
		// "QGH7XK91 Confirmed. Ksh500.00 sent to ... New M-PESA balance is Ksh1,200.00"
		// No space after the currency marker; a trailing balance clause
		// must not be mistaken for the transaction amount, so the match
		// is anchored right after "Confirmed.".
		name:         "confirmation-code",
		amount:       regexp.MustCompile(`(?i)Confirmed\.\s*Ksh(\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
		date:         regexp.MustCompile(`(?i)on (\d{1,2}/\d{1,2}/\d{2,4})`),
		dateLayouts:  []string{"2/1/06", "2/1/2006"},
		counterparty: regexp.MustCompile(`(?i)(?:sent to|paid to|received from|from) (.*?)(?: on | New |\.|$)`),
	},
}

var ordinalSuffix = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)`)

// Direction keywords. A message matching neither family is rejected,
// never defaulted.
var (
	sentKeywords     = []string{"sent to", "paid to", "you have sent", "withdraw"}
	receivedKeywords = []string{"received", "deposited"}
)

// Category heuristics over the message text, checked in order.
var categoryRules = []struct {
	keyword  string
	category string
}{
	{"airtime", "Airtime"},
	{"withdraw", "Cash Withdrawal"},
	{"agent", "Cash Withdrawal"},
	{"till", "Shopping"},
	{"merchant", "Shopping"},
	{"paybill", "Bills"},
	{"pay bill", "Bills"},
}
