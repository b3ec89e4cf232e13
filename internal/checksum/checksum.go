// Package checksum fingerprints model sources and exported MDL text. The
// digests double as HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes a digest for use in an ETag header.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromETag extracts the digest from an ETag or If-Match value. Weak
// validators are accepted; "*" and empty values yield "".
func FromETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	if tag == "*" {
		return ""
	}
	return strings.Trim(tag, `"`)
}

// Matches reports whether data hashes to sum.
func Matches(sum string, data []byte) bool {
	return subtle.ConstantTimeCompare([]byte(sum), []byte(Sum(data))) == 1
}
