package request

import (
	"crypto/md5"
	"encoding/hex"
)

// Digest returns the hex MD5 digest of content, matching the original
// implementation's hashlib.md5-based content fingerprint.
func Digest(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}
