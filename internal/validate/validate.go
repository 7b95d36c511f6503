package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	reMoney = regexp.MustCompile(`^[0-9]{1,9}([.,][0-9]{1,2})?$`)
	reInt   = regexp.MustCompile(`^[0-9]{1,9}$`)
	reID    = regexp.MustCompile(`^[1-9][0-9]{0,18}$`)
)

// MaxQuantity bounds a single stock movement.
const MaxQuantity = 100000

func text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > max {
		return "", false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", false
		}
	}
	return s, true
}

// Name validates an item name.
func Name(s string) (string, bool) { return text(s, 100) }

// Category validates a free-text category.
func Category(s string) (string, bool) { return text(s, 50) }

// DisplayName trims an actor's display name; an empty name is allowed.
func DisplayName(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 64 {
		s = string([]rune(s)[:64])
	}
	return s
}

// Money accepts a non-negative amount with up to two decimals, "." or ",".
func Money(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !reMoney.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// Count accepts a non-negative integer (stock levels, thresholds).
func Count(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !reInt.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxQuantity {
		return 0, false
	}
	return n, true
}

// Quantity accepts a positive integer (sales, arrivals).
func Quantity(s string) (int, bool) {
	n, ok := Count(s)
	if !ok || n < 1 {
		return 0, false
	}
	return n, true
}

// ID validates a positive numeric identifier (item ids, actor ids).
func ID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !reID.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Page parses a 1-based page number, falling back to 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
