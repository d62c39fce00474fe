// Package sanitize validates and normalizes inbound request fields before
// any other component sees them. It is pure: same input, same verdict, no
// access to storage or account state. A field is either fully cleaned or
// rejected; there is no partial pass-through.
package sanitize

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Reason is the machine-readable cause of a rejection.
type Reason string

const (
	ReasonTooLong            Reason = "tooLong"
	ReasonTooShort           Reason = "tooShort"
	ReasonInvalidCharacters  Reason = "invalidCharacters"
	ReasonSuspiciousPattern  Reason = "suspiciousPattern"
	ReasonMalformedStructure Reason = "malformedStructure"
	ReasonWeakPassword       Reason = "weakPassword"
)

// Rejection reports why a field was refused. It implements error so callers
// can thread it through ordinary error paths.
type Rejection struct {
	Field  string
	Reason Reason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("field %q rejected: %s", r.Field, r.Reason)
}

const (
	handleMinLen = 3
	handleMaxLen = 32

	passwordMinLen = 8
	passwordMaxLen = 128

	// MaxBodyBytes caps a structured request body.
	MaxBodyBytes = 50_000
	maxBodyDepth = 10
	maxStringLen = 10_000
)

// reservedHandles can neither be registered nor impersonated.
var reservedHandles = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"mod":           {},
	"moderator":     {},
	"kitchenchat":   {},
	"support":       {},
	"api":           {},
	"null":          {},
	"undefined":     {},
}

// Handle validates a user handle and returns its case-normalized form.
func Handle(field, raw string) (string, *Rejection) {
	handle := strings.TrimSpace(raw)
	if len(handle) < handleMinLen {
		return "", &Rejection{Field: field, Reason: ReasonTooShort}
	}
	if len(handle) > handleMaxLen {
		return "", &Rejection{Field: field, Reason: ReasonTooLong}
	}
	for _, r := range handle {
		if !isHandleRune(r) {
			return "", &Rejection{Field: field, Reason: ReasonInvalidCharacters}
		}
	}
	normalized := strings.ToLower(handle)
	if _, ok := reservedHandles[normalized]; ok {
		return "", &Rejection{Field: field, Reason: ReasonSuspiciousPattern}
	}
	// Handles that look like raw IDs or hash digests are refused: they
	// collide with how records are keyed elsewhere in the product.
	if allDigits(normalized) || (len(normalized) > 20 && allHex(normalized)) {
		return "", &Rejection{Field: field, Reason: ReasonSuspiciousPattern}
	}
	return normalized, nil
}

func isHandleRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func allHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return s != ""
}

// FreeText validates bounded free text (display names, status lines).
// Control characters are stripped, whitespace runs collapse to a single
// space, and anything carrying injection markers is refused outright.
func FreeText(field, raw string, maxLen int) (string, *Rejection) {
	cleaned := stripControl(raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) > maxLen {
		return "", &Rejection{Field: field, Reason: ReasonTooLong}
	}
	if ContainsInjection(cleaned) {
		return "", &Rejection{Field: field, Reason: ReasonSuspiciousPattern}
	}
	return cleaned, nil
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Password checks credential strength: 8-128 characters with at least one
// letter and one digit. The plaintext is deliberately not normalized.
func Password(field, raw string) *Rejection {
	if len(raw) < passwordMinLen {
		return &Rejection{Field: field, Reason: ReasonTooShort}
	}
	if len(raw) > passwordMaxLen {
		return &Rejection{Field: field, Reason: ReasonTooLong}
	}
	var hasLetter, hasDigit bool
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &Rejection{Field: field, Reason: ReasonWeakPassword}
	}
	return nil
}

// StructuredBody parses a JSON request body, bounding its size and nesting
// depth so a hostile payload cannot exhaust the parser.
func StructuredBody(raw []byte) (map[string]any, *Rejection) {
	if len(raw) == 0 {
		return nil, &Rejection{Field: "body", Reason: ReasonMalformedStructure}
	}
	if len(raw) > MaxBodyBytes {
		return nil, &Rejection{Field: "body", Reason: ReasonTooLong}
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Rejection{Field: "body", Reason: ReasonMalformedStructure}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &Rejection{Field: "body", Reason: ReasonMalformedStructure}
	}
	if rej := checkStructure(obj, 1); rej != nil {
		return nil, rej
	}
	return obj, nil
}

// checkStructure walks a decoded body enforcing depth, per-string length,
// and key hygiene (prototype-pollution style keys are refused).
func checkStructure(v any, depth int) *Rejection {
	if depth > maxBodyDepth {
		return &Rejection{Field: "body", Reason: ReasonMalformedStructure}
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			switch k {
			case "__proto__", "constructor", "prototype":
				return &Rejection{Field: "body", Reason: ReasonSuspiciousPattern}
			}
			if rej := checkStructure(child, depth+1); rej != nil {
				return rej
			}
		}
	case []any:
		for _, child := range t {
			if rej := checkStructure(child, depth+1); rej != nil {
				return rej
			}
		}
	case string:
		if len(t) > maxStringLen {
			return &Rejection{Field: "body", Reason: ReasonTooLong}
		}
	}
	return nil
}
