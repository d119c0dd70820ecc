package cli

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// nothingToDoMessage is printed when every input identifier is recorded.
const nothingToDoMessage = "No more identifiers to look up"

// printer is the locale-aware message printer for counts.
// Uses English locale for consistent thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// formatCount formats a count with thousand separators.
// Example: formatCount(18248) returns "18,248".
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}
