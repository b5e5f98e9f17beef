package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	ierr "github.com/duemate/duemate/internal/errors"
)

func TestGetCurrencySymbol(t *testing.T) {
	assert.Equal(t, "A$", GetCurrencySymbol("AUD"))
	assert.Equal(t, "$", GetCurrencySymbol("USD"))
	assert.Equal(t, "€", GetCurrencySymbol("EUR"))

	// unknown codes fall back to the code itself
	assert.Equal(t, "XXX", GetCurrencySymbol("XXX"))
}

func TestFormatAmount(t *testing.T) {
	testCases := []struct {
		name     string
		amount   decimal.Decimal
		currency string
		expected string
	}{
		{"whole_amount", decimal.NewFromInt(100), "AUD", "A$100.00"},
		{"fractional_amount", decimal.NewFromFloat(1234.5), "USD", "$1234.50"},
		{"zero", decimal.Zero, "EUR", "€0.00"},
		{"rounding", decimal.NewFromFloat(9.999), "AUD", "A$10.00"},
		{"unknown_currency", decimal.NewFromInt(5), "XXX", "XXX5.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatAmount(tc.amount, tc.currency))
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("AUD"))
	assert.NoError(t, ValidateCurrency("JPY"))

	err := ValidateCurrency("XXX")
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
