package types

import (
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/shopspring/decimal"
)

// CURRENCY_CODES_SYMBOLS is a map of 3 letter ISO currency codes to their
// display symbols. The keys double as the set of supported currencies.
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"AUD": "A$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "C$",
	"CHF": "CHF",
	"CNY": "¥",
	"SEK": "kr",
	"NZD": "NZ$",
	"MXN": "MX$",
	"SGD": "S$",
	"HKD": "HK$",
	"NOK": "kr",
	"KRW": "₩",
	"TRY": "₺",
	"RUB": "₽",
	"INR": "₹",
	"BRL": "R$",
	"ZAR": "R",
}

// DefaultCurrency is applied when a create request carries no currency
const DefaultCurrency = "AUD"

// GetCurrencySymbol returns the symbol for a given currency code.
// If the code is not found, it returns the code itself.
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[code]; ok {
		return symbol
	}
	return code
}

// FormatAmount renders an amount as "<symbol><amount>" with two decimals,
// e.g. A$110.00
func FormatAmount(amount decimal.Decimal, code string) string {
	return GetCurrencySymbol(code) + amount.StringFixed(2)
}

// ValidateCurrency checks membership in the supported currency set
func ValidateCurrency(code string) error {
	if _, ok := CURRENCY_CODES_SYMBOLS[code]; !ok {
		return ierr.NewError("invalid currency").
			WithHintf("Currency %s is not supported", code).
			WithReportableDetails(map[string]any{
				"currency": code,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
