// Package sanitize provides PHI/PII redaction and task classification for
// periscope. All functions are pure and total: no input produces an error.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLen is the cap applied to sanitized free text.
	MaxContentLen = 500

	// MaxTaskLen is the shorter cap applied to task descriptions.
	MaxTaskLen = 200

	// TruncationMarker is appended when content exceeds MaxContentLen.
	TruncationMarker = "...[TRUNCATED]"

	// Redacted replaces values of denylisted metadata keys.
	Redacted = "[REDACTED]"
)

// Redaction patterns, applied in declaration order. Later patterns operate on
// the already-redacted string, so the order is part of the contract.
var (
	// ssnRegex matches social-security-number-shaped sequences
	ssnRegex = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// mrnRegex matches 10-12 digit runs (medical record numbers)
	mrnRegex = regexp.MustCompile(`\b\d{10,12}\b`)

	// dateRegex matches M/D/YYYY-shaped dates
	dateRegex = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)

	// nameRegex matches two capitalized words (patient names)
	nameRegex = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)

	// phoneRegex matches phone-number-shaped sequences
	phoneRegex = regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`)

	// emailRegex matches email-shaped tokens
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// metadataDenylist holds metadata keys whose values are always redacted,
// compared case-insensitively.
var metadataDenylist = map[string]struct{}{
	"patient_id": {},
	"ssn":        {},
	"name":       {},
	"email":      {},
	"phone":      {},
}

// Content redacts PHI/PII-shaped substrings and truncates the result to
// MaxContentLen, appending TruncationMarker when content was cut.
func Content(text string) string {
	if text == "" {
		return ""
	}

	text = ssnRegex.ReplaceAllString(text, "[SSN]")
	text = mrnRegex.ReplaceAllString(text, "[MRN]")
	text = dateRegex.ReplaceAllString(text, "[DATE]")
	text = nameRegex.ReplaceAllString(text, "[PATIENT_NAME]")
	text = phoneRegex.ReplaceAllString(text, "[PHONE]")
	text = emailRegex.ReplaceAllString(text, "[EMAIL]")

	if len(text) > MaxContentLen {
		text = Truncate(text, MaxContentLen) + TruncationMarker
	}
	return text
}

// Truncate cuts text to at most n bytes without splitting a multi-byte rune,
// backing up to the nearest rune boundary so the result stays valid UTF-8.
func Truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// TaskDescription redacts a task description and hard-caps it at MaxTaskLen.
// Unlike Content, no marker is appended at this shorter cap.
func TaskDescription(task string) string {
	return Truncate(Content(task), MaxTaskLen)
}

// Metadata returns a sanitized copy of a metadata mapping. Denylisted keys,
// plus any extraKeys, have their values replaced wholesale; string values are
// redacted via Content; other value types pass through unchanged. Nested
// structures are not descended into.
func Metadata(metadata map[string]any, extraKeys ...string) map[string]any {
	safe := make(map[string]any, len(metadata))
	for key, value := range metadata {
		lower := strings.ToLower(key)
		_, denied := metadataDenylist[lower]
		for _, extra := range extraKeys {
			if denied {
				break
			}
			denied = lower == strings.ToLower(extra)
		}
		if denied {
			safe[key] = Redacted
			continue
		}
		if s, ok := value.(string); ok {
			safe[key] = Content(s)
			continue
		}
		safe[key] = value
	}
	return safe
}
