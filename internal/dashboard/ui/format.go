package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var monthAbbr = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

var (
	printerOnce sync.Once
	printer     *message.Printer
)

func ptBR() *message.Printer {
	printerOnce.Do(func() {
		printer = message.NewPrinter(language.BrazilianPortuguese)
	})
	return printer
}

// FormatMonth renders a "YYYY-MM" month the way pt-BR short dates read, e.g. "mar de 2025".
// Values that are not a valid month are returned unchanged.
func FormatMonth(month string) string {
	y, m, ok := splitMonth(month)
	if !ok {
		return month
	}
	return fmt.Sprintf("%s de %04d", monthAbbr[m-1], y)
}

// FormatDate turns "YYYY-MM-DD" into "DD/MM/YYYY". Anything else is returned unchanged.
func FormatDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// FormatCount renders an integer with pt-BR digit grouping ("12.345").
func FormatCount[T ~int | ~int64](n T) string {
	return ptBR().Sprintf("%d", int64(n))
}

func splitMonth(month string) (int, int, bool) {
	y, m, found := strings.Cut(month, "-")
	if !found || len(y) != 4 || len(m) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, false
	}
	mon, err := strconv.Atoi(m)
	if err != nil || mon < 1 || mon > 12 {
		return 0, 0, false
	}
	return year, mon, true
}
