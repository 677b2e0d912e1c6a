package document

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize applies NFKC so that full-width digits and ligatures extracted
// from PDFs match the ASCII patterns, and unifies line breaks.
func Normalize(text string) string {
	return lineBreaks.Replace(norm.NFKC.String(text))
}

// Digest returns the hex BLAKE2b-256 digest of a document's bytes.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
