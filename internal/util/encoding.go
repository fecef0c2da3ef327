package util

import (
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD unicode normalization. Client-supplied strings that
// feed fingerprint derivation must be normalized first so that visually
// identical inputs hash identically.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
