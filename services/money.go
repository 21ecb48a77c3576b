package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "")
	plainDecimal  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ParseAmount reads a user-entered money value such as "$1,250.00". ok is
// false unless plain decimal digits are left after stripping currency
// symbols and separators.
func ParseAmount(raw string) (amount float64, ok bool) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(raw))
	if !plainDecimal.MatchString(cleaned) {
		return 0, false
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}
	return amount, true
}
