package emailparse

import (
	"testing"
	"unicode/utf8"
)

func FuzzParse(f *testing.F) {
	seeds := [][2]string{
		{"Payment of Rs. 1,234.56 debited", "at Amazon on 2024-11-02"},
		{"Credit Alert: $1,000 deposited", "USD 1,000.00 has been credited"},
		{"", ""},
		{"₹₹₹", "Rs.Rs. ,,,, 9999999999999999999999999 paid"},
		{"\xff\xfe", "31/02/2024 Feb 30, 2024 \x00"},
		{"EMI loan", "from  Bank by Finance"},
	}
	for _, s := range seeds {
		f.Add(s[0], s[1])
	}

	p := New()
	f.Fuzz(func(t *testing.T, subject, body string) {
		if c := p.Parse(subject, body); c != nil {
			if c.AmountMinor < 0 {
				t.Fatalf("negative magnitude %d", c.AmountMinor)
			}
			if len(c.Currency) != 3 {
				t.Fatalf("bad currency %q", c.Currency)
			}
			if utf8.RuneCountInString(c.Raw) > rawLimit || utf8.RuneCountInString(c.Note) > noteLimit {
				t.Fatalf("truncation exceeded")
			}
		}
		_ = p.DetectCreditCardPayment(subject, body)
		_ = p.DetectLoanNotice(subject, body)
	})
}
