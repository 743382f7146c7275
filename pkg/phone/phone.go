// Package phone normalizes subscriber numbers to the +<countrycode><subscriber>
// form used across the queue, USSD, and notification paths, and provides the
// masked/hashed representations required on security-relevant log lines.
package phone

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	pkgerrors "github.com/qatalysthq/qatalyst-backend/pkg/errors"
)

const (
	minDigits = 9
	maxDigits = 15
)

// Normalize strips whitespace, prefixes a missing "+" and validates that the
// remainder is a plausible international number. It returns a VALIDATION_ERROR
// for anything it cannot normalize.
func Normalize(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}

	digits := cleaned[1:]
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number has an invalid length")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number contains invalid characters")
		}
	}
	return cleaned, nil
}

// Valid reports whether raw normalizes cleanly.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// Mask keeps the leading country code and the last two digits, replacing the
// middle with asterisks. Input that fails to normalize masks to "***".
func Mask(raw string) string {
	normalized, err := Normalize(raw)
	if err != nil {
		return "***"
	}
	// "+", up to three country-code digits, then the subscriber tail.
	head := 4
	if len(normalized) < head+4 {
		head = 2
	}
	tail := normalized[len(normalized)-2:]
	return normalized[:head] + strings.Repeat("*", len(normalized)-head-2) + tail
}

// Hash returns a stable hex digest of the normalized number for correlating
// log lines without storing the raw value.
func Hash(raw string) string {
	normalized, err := Normalize(raw)
	if err != nil {
		normalized = strings.TrimSpace(raw)
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
