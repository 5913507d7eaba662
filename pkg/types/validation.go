package types

import (
	"strings"
	"unicode/utf8"
)

// MaxIdentityLength is the display name cap in characters, not bytes.
// Longer names are rejected, never truncated.
const MaxIdentityLength = 20

// ValidateIdentity trims surrounding whitespace and enforces the identity
// rules. It returns the normalized name on success.
func ValidateIdentity(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrEmptyIdentity
	}
	if utf8.RuneCountInString(name) > MaxIdentityLength {
		return "", ErrIdentityTooLong
	}
	return name, nil
}

// NormalizeBody trims a message body. An empty result means the send is a
// silent no-op; clients are expected to prevent empty sends themselves.
func NormalizeBody(raw string) string {
	return strings.TrimSpace(raw)
}
