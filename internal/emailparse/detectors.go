package emailparse

import (
	"regexp"
	"strings"
)

// LoanHintText is the prompt attached to every loan notice.
const LoanHintText = "Loan/EMI payment notice detected. Consider setting up recurring payment."

// CardPayment signals a credit card payment alert. Amount is nil when the
// text carries no recognizable amount.
type CardPayment struct {
	CardLast4 string
	Amount    *Amount
}

// LoanNotice signals a loan or EMI reminder.
type LoanNotice struct {
	Lender string
	Hint   string
}

var (
	cardKeywords = keywordMatcher("credit card", "card payment", "card ending", "card charged", "payment processed")
	cardSuffix   = regexp.MustCompile(`(?i)(?:ending(?:\s+in)?|last\s*4(?:\s+digits)?|xxxx)\s*(\d{4})`)

	loanKeywords = keywordMatcher("emi", "loan", "installment", "instalment", "repayment",
		"due date", "payment due", "monthly payment")
	lenderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:[Ff]rom|[Bb]y)\s+((?:[A-Z][A-Za-z&]*\s+)*(?:Bank|Finance|Loans?))\b`),
		regexp.MustCompile(`\b((?:[A-Z][A-Za-z&]*\s+)+(?:Bank|Finance|Loans?))\b`),
	}
)

// keywordMatcher builds a case-insensitive, word-bounded alternation that
// also accepts a plural "s". Inner spaces match any run of whitespace.
func keywordMatcher(keywords ...string) *regexp.Regexp {
	alts := make([]string, len(keywords))
	for i, k := range keywords {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)s?\b`)
}

// DetectCreditCardPayment reports a card payment alert, or nil.
func (p *Parser) DetectCreditCardPayment(subject, body string) *CardPayment {
	text := combine(subject, body)
	if !cardKeywords.MatchString(text) {
		return nil
	}

	cp := &CardPayment{}
	if m := cardSuffix.FindStringSubmatch(text); m != nil {
		cp.CardLast4 = m[1]
	}
	if amt, ok := extractAmount(text, p.fallbackCurrency); ok {
		cp.Amount = &amt
	}
	return cp
}

// DetectLoanNotice reports a loan or EMI notice, or nil.
func (p *Parser) DetectLoanNotice(subject, body string) *LoanNotice {
	text := combine(subject, body)
	if !loanKeywords.MatchString(text) {
		return nil
	}

	ln := &LoanNotice{Hint: LoanHintText}
	for _, re := range lenderPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			ln.Lender = strings.Join(strings.Fields(m[1]), " ")
			break
		}
	}
	return ln
}
