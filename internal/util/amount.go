package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountPattern        = regexp.MustCompile(`\$?\s*([\d.,]+)\s*\$?`)
	amountCellPattern    = regexp.MustCompile(`^\$?[\d.,]+$`)
	decimalCommaPattern  = regexp.MustCompile(`,\d{2}$`)
	leadingNumberPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?|\.\d+)`)

	maxAmount = decimal.NewFromInt(10_000_000)
)

// ParseAmount returns the largest plausible monetary amount found in input,
// rounded to cents. Values <= 0 or above ten million are ignored.
func ParseAmount(input string) (decimal.Decimal, bool) {
	if strings.TrimSpace(input) == "" {
		return decimal.Zero, false
	}

	best := decimal.Zero
	found := false
	for _, m := range amountPattern.FindAllStringSubmatch(input, -1) {
		value, ok := parseAmountToken(m[1])
		if !ok || !value.IsPositive() || value.GreaterThan(maxAmount) {
			continue
		}
		if !found || value.GreaterThan(best) {
			best = value
			found = true
		}
	}
	if !found {
		return decimal.Zero, false
	}
	return best.Round(2), true
}

// StripAmounts removes every amount-like run from input.
func StripAmounts(input string) string {
	return amountPattern.ReplaceAllString(input, " ")
}

// LooksLikeAmount reports whether a whole cell is a bare amount such as "$1,200.50".
func LooksLikeAmount(cell string) bool {
	return amountCellPattern.MatchString(strings.TrimSpace(cell))
}

// NormalizeAmountToken rewrites a digit/separator run into dot-decimal form.
// A trailing ",dd" marks comma-decimal notation; otherwise commas group thousands.
func NormalizeAmountToken(token string) string {
	compact := strings.Join(strings.Fields(token), "")
	if decimalCommaPattern.MatchString(compact) {
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.Replace(compact, ",", ".", 1)
	}
	return strings.ReplaceAll(compact, ",", "")
}

func parseAmountToken(token string) (decimal.Decimal, bool) {
	lead := leadingNumberPattern.FindString(NormalizeAmountToken(token))
	if lead == "" {
		return decimal.Zero, false
	}
	if strings.HasPrefix(lead, ".") {
		lead = "0" + lead
	}
	value, err := decimal.NewFromString(lead)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}
