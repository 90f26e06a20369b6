package domain

import (
	"regexp"
	"strings"
)

// OrderIDPrefix is prepended to purely numeric order ids.
const OrderIDPrefix = "ORD-"

var rawOrderIDPattern = regexp.MustCompile(`^(ORD-)?\d+$`)

// NormalizeOrderID rewrites a purely numeric id ("123") to its prefixed
// form ("ORD-123"). Every entry point that accepts a raw id must call it
// before any lookup or publish.
func NormalizeOrderID(id string) string {
	if id != "" && isDigits(id) {
		return OrderIDPrefix + id
	}
	return id
}

// ValidOrderID reports whether id is digits or "ORD-" followed by digits.
func ValidOrderID(id string) bool {
	return rawOrderIDPattern.MatchString(id)
}

func isDigits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}
