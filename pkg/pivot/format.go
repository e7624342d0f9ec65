package pivot

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	printerOnce sync.Once
	printer     *message.Printer
)

func numberPrinter() *message.Printer {
	printerOnce.Do(func() {
		printer = message.NewPrinter(language.Italian)
	})
	return printer
}

// FormatNumber renders a numeric cell with Italian grouping and two decimals.
// Non-numeric values are rendered as text.
func FormatNumber(v interface{}) string {
	f, ok := normalizeScalar(v).(float64)
	if !ok {
		return text(v)
	}
	return numberPrinter().Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatPercent renders a percentage metric as "N.NN%".
func FormatPercent(v interface{}, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, numberOrZero(v))
}
