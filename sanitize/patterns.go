package sanitize

import (
	"regexp"
	"strings"
)

// Script-injection markers. Matched against the lowercased value, so the
// patterns themselves stay lowercase.
var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<script`),
	regexp.MustCompile(`javascript:`),
	regexp.MustCompile(`vbscript:`),
	regexp.MustCompile(`\bon\w+\s*=`), // onclick=, onload=, ...
	regexp.MustCompile(`<(iframe|object|embed|applet|svg)\b`),
	regexp.MustCompile(`<meta[^>]*http-equiv`),
	regexp.MustCompile(`data:text/html`),
	regexp.MustCompile(`expression\s*\(`),
	// Encoded variants that decode to a script tag downstream.
	regexp.MustCompile(`&lt;script`),
	regexp.MustCompile(`%3cscript`),
	regexp.MustCompile(`&#x3c;script`),
}

// Query-injection markers: quote-comment sequences, boolean tautologies,
// stacked statements.
var queryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`'\s*(or|and)\s+'?\w+'?\s*=\s*'?\w+`),
	regexp.MustCompile(`'\s*(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`union\s+(all\s+)?select`),
	regexp.MustCompile(`;\s*(drop|delete|insert|update|create)\s`),
	regexp.MustCompile(`(sleep|benchmark|waitfor)\s*\(`),
	regexp.MustCompile(`--\s*$`),
	regexp.MustCompile(`/\*.*\*/`),
}

// ContainsInjection reports whether a value carries known script- or
// query-injection markers. Detection runs before any semantic processing.
func ContainsInjection(value string) bool {
	lower := strings.ToLower(value)
	for _, p := range xssPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	for _, p := range queryPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}
