package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short stable digest of v. Audit sinks receive the
// fingerprint of the device id, never the id itself.
func Fingerprint(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:8])
}
