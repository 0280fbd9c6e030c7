package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeConditionValue trims surrounding whitespace and applies Unicode NFC.
// Two condition values are the same iff their normalized forms are equal.
// An empty result means the entry carries no condition.
func NormalizeConditionValue(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
