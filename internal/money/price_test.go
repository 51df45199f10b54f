package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		cents    int64
		currency string
		ok       bool
	}{
		{"euro comma decimal", "49,99 €", 4999, "EUR", true},
		{"dollar with thousands", "US $1,299.00", 129900, "USD", true},
		{"currency code", "12.50 EUR", 1250, "EUR", true},
		{"european thousands dot", "1.299,90 €", 129990, "EUR", true},
		{"integer amount", "£35", 3500, "GBP", true},
		{"range takes first amount", "$3.50 - 5.20", 350, "USD", true},
		{"non breaking space", "1\u00a0250,00 €", 125000, "EUR", true},
		{"thousands only comma", "1,299 €", 129900, "EUR", true},
		{"single decimal digit", "9,5€", 950, "EUR", true},
		{"no digits", "Prix sur demande", 0, "", false},
		{"zero", "0,00 €", 0, "", false},
		{"empty", "   ", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := ParsePriceText(tt.input)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.cents, price.Cents)
			assert.Equal(t, tt.currency, price.Currency)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "49.99", FormatCents(4999))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "1200.00", FormatCents(120000))
}
