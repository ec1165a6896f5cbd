package fp

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// NormalizeKey trims surrounding whitespace from a resource key.
func NormalizeKey(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeSelection trims, drops empty entries, sorts and dedupes item
// IDs, so the same selection in any order fingerprints identically.
func NormalizeSelection(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Fingerprint computes a stable hex-encoded SHA-256 over the normalized
// resource key and selection. Identical requests share a fingerprint, which
// is how a second launch of a running download is detected.
func Fingerprint(key string, selected []string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeKey(key)))
	for _, id := range NormalizeSelection(selected) {
		// NUL cannot appear in keys or IDs
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short returns the first n hex digits of a fingerprint.
func Short(fprint string, n int) string {
	if n <= 0 || n >= len(fprint) {
		return fprint
	}
	return fprint[:n]
}
