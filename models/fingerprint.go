package models

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLen = 16

// Fingerprint returns the stable identity of a listing: the first 16 hex
// characters of sha256("site|title|url"). Price and the other mutable
// attributes are not part of the identity.
func Fingerprint(site, title, url string) string {
	sum := sha256.Sum256([]byte(site + "|" + title + "|" + url))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
