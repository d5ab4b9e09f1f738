// Package parser turns scraped price text into normalized prices.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNoPrice is returned when the text holds nothing shaped like a price.
var ErrNoPrice = errors.New("no price found")

// Either separator may group thousands or mark cents. A grouped integer
// part is tried first so "1.234" is read as 1234 and not 1.23.
var pricePattern = regexp.MustCompile(`(?:\d{1,3}(?:[.,]\d{3})+|\d+)(?:[.,]\d{2})?[.,]?`)

// ParsePrice extracts the first price in text. The last separator followed
// by exactly two digits is the decimal separator; any earlier separator
// groups thousands. A trailing bare separator ("99,") is dropped.
func ParsePrice(text string) (models.Price, error) {
	match := pricePattern.FindString(text)
	if match == "" {
		return models.Price{}, fmt.Errorf("%w in %q", ErrNoPrice, strings.TrimSpace(text))
	}
	return normalize(match)
}

func normalize(raw string) (models.Price, error) {
	raw = strings.TrimRight(raw, ".,")

	var price models.Price
	intPart, frac := raw, ""
	if i := strings.LastIndexAny(raw, ".,"); i >= 0 && len(raw)-i-1 == 2 {
		price.DecimalSep = raw[i]
		intPart, frac = raw[:i], raw[i+1:]
	}

	if i := strings.IndexAny(intPart, ".,"); i >= 0 {
		price.GroupSep = intPart[i]
	}
	digits := strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if frac != "" {
		digits += "." + frac
	}

	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return models.Price{}, fmt.Errorf("%w: %q: %v", ErrNoPrice, raw, err)
	}
	price.Amount = amount
	return price, nil
}
