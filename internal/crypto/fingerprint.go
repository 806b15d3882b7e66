package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short, non-reversible identifier for a secret so log
// lines can correlate it without containing it.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])[:12]
}
