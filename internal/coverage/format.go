// SPDX-License-Identifier: Apache-2.0

package coverage

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// FormatCount renders n with '.' as the thousands separator.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatRatio renders a ratio as a percentage with two decimals and a
// decimal comma. An absent ratio renders as "-".
func FormatRatio(ratio *float64) string {
	if ratio == nil {
		return "-"
	}
	return printer.Sprintf("%.2f%%", *ratio*100)
}
