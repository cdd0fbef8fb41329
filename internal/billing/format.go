package billing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount as US dollars with thousands grouping, e.g. "$1,234.50".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	return sign + "$" + printer.Sprintf("%.2f", rounded.InexactFloat64())
}

// FormatHours renders hours with up to two decimals, e.g. "7.5".
func FormatHours(hours decimal.Decimal) string {
	return hours.Round(2).String()
}
