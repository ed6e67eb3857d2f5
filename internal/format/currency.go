// Package format renders money amounts for user-facing text.
package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fintrack/internal/core"
)

const (
	DefaultLocale = "en-IN"
	DefaultSymbol = "₹"
)

// Currency prints amounts with a symbol and locale-aware digit grouping.
type Currency struct {
	printer *message.Printer
	symbol  string
}

// NewCurrency parses locale as a BCP 47 tag; unparseable tags fall back to DefaultLocale.
func NewCurrency(locale, symbol string) Currency {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return Currency{printer: message.NewPrinter(tag), symbol: symbol}
}

// Default is the en-IN rupee formatter.
func Default() Currency {
	return NewCurrency(DefaultLocale, DefaultSymbol)
}

// Amount renders m with two decimals, e.g. ₹1,234.50.
func (c Currency) Amount(m core.Money) string {
	sign := ""
	if m.IsNegative() {
		sign = "-"
		m = m.Abs()
	}
	return sign + c.symbol + c.printer.Sprintf("%.2f", m.Float())
}

// Whole renders m rounded to whole units, e.g. ₹1,235.
func (c Currency) Whole(m core.Money) string {
	units := m.Decimal().Round(0).IntPart()
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return sign + c.symbol + c.printer.Sprintf("%d", units)
}
