package money

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the display suffix for whole-rouble prices.
const Currency = "₽"

var (
	printersMu sync.Mutex
	printers   = map[language.Tag]*message.Printer{}
)

func printer(tag language.Tag) *message.Printer {
	printersMu.Lock()
	defer printersMu.Unlock()
	p, ok := printers[tag]
	if !ok {
		p = message.NewPrinter(tag)
		printers[tag] = p
	}
	return p
}

// Format renders a whole-unit price with locale digit grouping, e.g. "4 700 ₽".
func Format(amount int64) string {
	return FormatIn(language.Russian, amount)
}

// FormatIn renders amount using the grouping rules of tag.
func FormatIn(tag language.Tag, amount int64) string {
	return printer(tag).Sprintf("%d", amount) + " " + Currency
}
