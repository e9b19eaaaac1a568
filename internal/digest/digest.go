// Package digest fingerprints rendered artifacts.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Sum returns the hex SHA-256 of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ETag returns a strong entity tag for data.
func ETag(data []byte) string {
	return `"` + Sum(data)[:32] + `"`
}

// NotModified reports whether r's If-None-Match header matches etag.
func NotModified(r *http.Request, etag string) bool {
	header := r.Header.Get("If-None-Match")
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
