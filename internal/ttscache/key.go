package ttscache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// KeyLength is the length of a hex encoded ContentKey.
const KeyLength = sha256.Size * 2

// NormalizeText returns the form of text that participates in the content key.
func NormalizeText(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// NormalizeVoice returns the form of voice that participates in the content key.
func NormalizeVoice(voice string) string {
	return strings.ToLower(strings.TrimSpace(voice))
}

// DeriveKey returns the content-addressed identifier for a (text, voice) pair.
//
// Both fields are length-prefixed before hashing, so ("ab", "c") and ("a", "bc")
// can never produce the same digest input.
func DeriveKey(text, voice string) string {
	text = NormalizeText(text)
	voice = NormalizeVoice(voice)

	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d:%s", len(text), text, len(voice), voice)
	return hex.EncodeToString(h.Sum(nil))
}

// ValidKey reports whether s has the shape of a key produced by DeriveKey.
func ValidKey(s string) bool {
	if len(s) != KeyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
