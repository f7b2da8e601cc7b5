package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// DefaultMaxTextLength bounds submitted review text. Submissions above
// this length are rejected before any fingerprinting or storage work.
const DefaultMaxTextLength = 10000

// Fingerprinting errors.
var (
	ErrEmptyText   = errors.New("review text cannot be empty")
	ErrTextTooLong = errors.New("review text exceeds maximum length")
)

// Fingerprint is the deterministic content key for a piece of review
// text. Identical normalized text always yields the identical
// fingerprint, which makes it usable as the cache and dedup key.
type Fingerprint string

// NormalizeText canonicalizes review text before hashing: leading and
// trailing whitespace is trimmed, the text is lowercased, and interior
// runs of whitespace collapse to a single space. Two reviews that differ
// only in casing or spacing normalize to the same string.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// NewFingerprint normalizes the given text and returns the hex-encoded
// SHA-256 digest of the normalized form. Returns ErrEmptyText if the
// text is empty (or whitespace only) and ErrTextTooLong if it exceeds
// maxLength. A maxLength of zero applies DefaultMaxTextLength.
func NewFingerprint(text string, maxLength int) (Fingerprint, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}

	if len(text) > maxLength {
		return "", ErrTextTooLong
	}

	normalized := NormalizeText(text)
	if normalized == "" {
		return "", ErrEmptyText
	}

	sum := sha256.Sum256([]byte(normalized))
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// String returns the fingerprint as its hex string form.
func (f Fingerprint) String() string {
	return string(f)
}
