package predictor

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders results with the grouping rules of a locale. Values are
// rounded for display only.
type Formatter struct {
	printer  *message.Printer
	currency string
	unit     string
}

func NewFormatter(locale, currency, unit string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: currency, unit: unit}, nil
}

// Money formats v with no decimals, e.g. €200,000.
func (f *Formatter) Money(v float64) string {
	return f.currency + f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
}

func (f *Formatter) Total(r Result) string {
	return f.Money(r.TotalPrice)
}

// PerArea formats the per-area price, e.g. €2,500 / m².
func (f *Formatter) PerArea(r Result) string {
	return f.Money(r.PricePerArea) + " / " + f.unit
}

func (f *Formatter) Summary(r Result) string {
	return fmt.Sprintf("Estimated price: %s  (≈ %s)", f.Total(r), f.PerArea(r))
}
