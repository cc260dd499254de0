package utils

import (
	"fmt"
	"strconv"
)

// FormatCurrencyJPY formats an integer yen amount with thousand separators.
// Example: 15000 -> "¥15,000". Yen has no fractional subunit, so amounts
// are plain integers everywhere in this system.
func FormatCurrencyJPY(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}

	if negative {
		return fmt.Sprintf("-¥%s", out)
	}
	return fmt.Sprintf("¥%s", out)
}
