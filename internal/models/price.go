package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Locale selects the separator convention used when rendering a price.
type Locale string

const (
	LocaleDE Locale = "de" // 1.234,56
	LocaleEN Locale = "en" // 1,234.56
)

// Price is a normalized price: the magnitude plus the separators seen in
// the source text, so it can be rendered back in the same convention.
type Price struct {
	Amount decimal.Decimal
	// DecimalSep is the separator that marked the fraction in the source,
	// zero when the source had no fractional part.
	DecimalSep byte
	// GroupSep is the thousands separator seen in the source, if any.
	GroupSep byte
}

func NewPrice(amount decimal.Decimal) Price {
	p := Price{Amount: amount}
	if !amount.Equal(amount.Truncate(0)) {
		p.DecimalSep = '.'
	}
	return p
}

// HasFraction reports whether the price carries cents.
func (p Price) HasFraction() bool {
	return p.DecimalSep != 0
}

// Locale returns the convention the price was written in, defaulting to
// German when the source gave no hint.
func (p Price) Locale() Locale {
	if p.DecimalSep == '.' || p.GroupSep == ',' {
		return LocaleEN
	}
	return LocaleDE
}

// String renders the canonical form: '.' as decimal separator, no grouping.
func (p Price) String() string {
	if p.HasFraction() {
		return p.Amount.StringFixed(2)
	}
	return p.Amount.String()
}

// Format renders the price in the given convention, grouping thousands.
func (p Price) Format(l Locale) string {
	decSep, groupSep := ",", "."
	if l == LocaleEN {
		decSep, groupSep = ".", ","
	}

	canonical := p.String()
	intPart, frac, hasFrac := strings.Cut(canonical, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteString(decSep)
		b.WriteString(frac)
	}
	return b.String()
}

func (p Price) Float64() float64 {
	f, _ := p.Amount.Float64()
	return f
}

// Equal compares magnitudes only.
func (p Price) Equal(o Price) bool {
	return p.Amount.Equal(o.Amount)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Price) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// bare JSON number
		s = string(data)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*p = NewPrice(amount)
	if strings.Contains(s, ".") {
		p.DecimalSep = '.'
	}
	return nil
}
