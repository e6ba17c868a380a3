package http

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fintrack/internal/core"
)

// formatRupees renders an amount with grouped digits, e.g. "₹50,000" or
// "₹1,234.50". Whole amounts drop the decimals.
func formatRupees(m core.Money) string {
	p := message.NewPrinter(language.English)

	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	if cents%100 == 0 {
		return sign + p.Sprintf("₹%d", cents/100)
	}
	return sign + p.Sprintf("₹%.2f", float64(cents)/100)
}
