package parser

import (
	"testing"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		decSep   byte
		groupSep byte
	}{
		{"German with grouping", "1.234,56", "1234.56", ',', '.'},
		{"English with grouping", "1,234.56", "1234.56", '.', ','},
		{"Euro suffix", "49,99 €", "49.99", ',', 0},
		{"Currency prefix and label", "Preis: € 12.50 inkl. MwSt.", "12.50", '.', 0},
		{"Trailing bare separator", "99,", "99", 0, 0},
		{"Grouping only", "1.234", "1234", 0, '.'},
		{"Several groups", "12.345.678,90", "12345678.90", ',', '.'},
		{"Ungrouped long integer part", "1234,56", "1234.56", ',', 0},
		{"Surrounding whitespace", "  \n 7,00\t", "7.00", ',', 0},
		{"Dash as cents", "1.299,- EUR", "1299", 0, '.'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := ParsePrice(tt.input)
			require.NoError(t, err)

			assert.True(t, price.Amount.Equal(decimal.RequireFromString(tt.expected)),
				"ParsePrice(%q) = %s, want %s", tt.input, price.Amount, tt.expected)
			assert.Equal(t, tt.decSep, price.DecimalSep)
			assert.Equal(t, tt.groupSep, price.GroupSep)
		})
	}
}

func TestParsePriceFailure(t *testing.T) {
	for _, input := range []string{"no price here", "", "   ", "€"} {
		_, err := ParsePrice(input)
		assert.ErrorIs(t, err, ErrNoPrice, "input %q", input)
	}
}

func TestParsePriceRoundTrip(t *testing.T) {
	tests := []struct {
		input  string
		locale models.Locale
		want   string
	}{
		{"1.234,56 €", models.LocaleDE, "1.234,56"},
		{"$1,234.56", models.LocaleEN, "1,234.56"},
		{"49,99", models.LocaleDE, "49,99"},
		{"99,", models.LocaleDE, "99"},
		{"45.00", models.LocaleEN, "45.00"},
	}

	for _, tt := range tests {
		price, err := ParsePrice(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.locale, price.Locale(), "locale of %q", tt.input)

		rendered := price.Format(price.Locale())
		assert.Equal(t, tt.want, rendered)

		again, err := ParsePrice(rendered)
		require.NoError(t, err)
		assert.True(t, again.Equal(price), "%q did not survive a round trip", tt.input)
	}
}
