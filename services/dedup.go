package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// dedupKeySeparator joins the two identity inputs; it is not expected to
// appear inside a company name or URL.
const dedupKeySeparator = "||"

// DedupKey derives the stable identity hash for a listing from its
// normalized company name and source URL. Case and surrounding whitespace
// never affect identity; any other field difference is ignored. Listings
// from different sources about the same real company intentionally get
// distinct keys.
func DedupKey(companyName, sourceURL string) string {
	input := strings.ToLower(strings.TrimSpace(companyName)) +
		dedupKeySeparator +
		strings.ToLower(strings.TrimSpace(sourceURL))

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
