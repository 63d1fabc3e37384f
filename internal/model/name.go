package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the form under which user and card names are stored
// and looked up: NFC with surrounding whitespace removed.
func NormalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}
