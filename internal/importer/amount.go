package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount accepts both "1,234.56" and the European "1.234,56". Whichever
// of '.' and ',' comes last is the decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(s, " ", "")
	clean = strings.TrimSuffix(strings.TrimPrefix(clean, "€"), "€")

	if i := strings.LastIndex(clean, ","); i > strings.LastIndex(clean, ".") {
		clean = strings.ReplaceAll(clean[:i], ".", "") + "." + clean[i+1:]
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
