// Package fingerprint computes fast, non-cryptographic content digests used
// for change detection. Fingerprints let the remote executor skip files it
// already has; they are never used for integrity.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the fingerprint of content as a fixed-width hex string.
func Hash(content string) string {
	sum := xxhash.Sum64String(content)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return hex.EncodeToString(buf[:])
}

// Equal reports whether content matches a previously computed fingerprint.
func Equal(content, fp string) bool {
	return Hash(content) == fp
}
