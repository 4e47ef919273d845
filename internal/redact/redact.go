// Package redact masks sensitive identifiers in user utterances before they
// reach any downstream service.
package redact

import (
	"regexp"
	"strings"
)

// Mask replaces every token that looks like a permanent account number.
const Mask = "1111111111"

// five letters, four digits, one letter
var panPattern = regexp.MustCompile(`^[a-zA-Z]{5}[0-9]{4}[a-zA-Z]$`)

// Redact splits text on whitespace, masks identifier-shaped tokens and
// rejoins the result with single spaces.
func Redact(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if panPattern.MatchString(w) {
			words[i] = Mask
		}
	}
	return strings.Join(words, " ")
}

// Contains reports whether text holds at least one maskable token.
func Contains(text string) bool {
	for _, w := range strings.Fields(text) {
		if panPattern.MatchString(w) {
			return true
		}
	}
	return false
}
