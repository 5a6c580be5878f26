package domain

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders an amount for display, e.g. "$1,250.00" or "1,250.00 CHF".
func FormatPrice(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	number := pricePrinter.Sprintf("%.2f", RoundCents(amount))
	if symbol, ok := currencySymbols[currency]; ok {
		if strings.HasPrefix(number, "-") {
			return "-" + symbol + number[1:]
		}
		return symbol + number
	}
	return number + " " + currency
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
