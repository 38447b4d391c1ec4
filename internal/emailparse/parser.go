// Package emailparse extracts transactions and payment signals from bank
// alert e-mails. Every function is best effort: malformed input yields nil
// or absent fields, never an error or a panic.
package emailparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultCurrency = "USD"

	noteLimit = 200
	rawLimit  = 500
)

type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Candidate is a transaction recognized in an alert. AmountMinor is the
// unsigned magnitude; see SignedAmount.
type Candidate struct {
	ClientID    string
	AmountMinor int64
	Currency    string
	Direction   Direction
	Merchant    string
	OccurredAt  time.Time // zero when no date was found
	Note        string
	Raw         string
}

// SignedAmount is negative for debits.
func (c *Candidate) SignedAmount() int64 {
	if c.Direction == Debit {
		return -c.AmountMinor
	}
	return c.AmountMinor
}

// Category is the ledger category used for e-mail captured records.
func (c *Candidate) Category() string {
	if c.Direction == Debit {
		return "Expense"
	}
	return "Income"
}

type Parser struct {
	fallbackCurrency string
	loc              *time.Location
	now              func() time.Time
	randomSuffix     func() string
}

type Option func(*Parser)

// WithFallbackCurrency sets the code used when a marker is not in the table.
func WithFallbackCurrency(code string) Option {
	return func(p *Parser) {
		if code != "" {
			p.fallbackCurrency = strings.ToUpper(code)
		}
	}
}

// WithLocation sets the zone dates without an offset are read in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithIDSource replaces the 9 character random part of generated client ids.
func WithIDSource(f func() string) Option {
	return func(p *Parser) { p.randomSuffix = f }
}

func New(opts ...Option) *Parser {
	p := &Parser{
		fallbackCurrency: DefaultCurrency,
		loc:              time.UTC,
		now:              time.Now,
		randomSuffix:     randomSuffix,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

var (
	debitKeywords  = []string{"debited", "debit", "spent", "paid", "payment", "purchase", "withdrawn", "withdrawal", "charged", "transaction"}
	creditKeywords = []string{"credited", "credit", "received", "deposited", "deposit", "refund", "cashback"}

	merchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:at|to|via|from)[ \t]+([A-Z][A-Za-z0-9 \t&'-]*?)(?:\s+on\b|\s+for\b|[.,;\n]|$)`),
		regexp.MustCompile(`(?i)\b(?:merchant|store|shop):[ \t]*([A-Za-z0-9 \t&'-]+?)(?:[.,;\n]|$)`),
	}
)

// Parse returns the transaction described by an alert, or nil when either
// the amount or the direction cannot be established.
func (p *Parser) Parse(subject, body string) *Candidate {
	text := combine(subject, body)

	amt, ok := extractAmount(text, p.fallbackCurrency)
	if !ok {
		return nil
	}

	dir, ok := detectDirection(text)
	if !ok {
		return nil
	}

	return &Candidate{
		ClientID:    p.newClientID(),
		AmountMinor: amt.Minor,
		Currency:    amt.Currency,
		Direction:   dir,
		Merchant:    extractMerchant(text),
		OccurredAt:  extractDate(text, p.loc),
		Note:        truncate(subject, noteLimit),
		Raw:         truncate(text, rawLimit),
	}
}

func (p *Parser) newClientID() string {
	return fmt.Sprintf("email-%d-%s", p.now().UnixMilli(), p.randomSuffix())
}

// combine joins subject and body and folds compatibility forms (full-width
// digits and currency signs) so one set of patterns covers them.
func combine(subject, body string) string {
	return norm.NFKC.String(subject + " " + body)
}

func detectDirection(text string) (Direction, bool) {
	lower := strings.ToLower(text)
	for _, k := range debitKeywords {
		if strings.Contains(lower, k) {
			return Debit, true
		}
	}
	for _, k := range creditKeywords {
		if strings.Contains(lower, k) {
			return Credit, true
		}
	}
	return "", false
}

func extractMerchant(text string) string {
	for _, re := range merchantPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name := strings.Join(strings.Fields(m[1]), " "); name != "" {
			return name
		}
	}
	return ""
}

var (
	isoDate      = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	dayFirstDate = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{4}|\d{2})\b`)
	monthFirst   = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonth     = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+(\d{4})\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// extractDate tries ISO, then day-first numeric, then month-name forms. The
// first pattern that matches decides; an impossible date yields zero.
func extractDate(text string, loc *time.Location) time.Time {
	if m := isoDate.FindStringSubmatch(text); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
	}
	if m := dayFirstDate.FindStringSubmatch(text); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		return makeDate(year, atoi(m[2]), atoi(m[1]), loc)
	}
	if m := monthFirst.FindStringSubmatch(text); m != nil {
		return makeDate(atoi(m[3]), int(months[strings.ToLower(m[1])]), atoi(m[2]), loc)
	}
	if m := dayMonth.FindStringSubmatch(text); m != nil {
		return makeDate(atoi(m[3]), int(months[strings.ToLower(m[2])]), atoi(m[1]), loc)
	}
	return time.Time{}
}

func makeDate(year, month, day int, loc *time.Location) time.Time {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); such input is invalid.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}
	}
	return t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
