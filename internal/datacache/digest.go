package datacache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Algorithm names the 256-bit digest used to address cache entries.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// digestLen is the hex length of every supported digest.
const digestLen = 64

// ParseAlgorithm validates an algorithm name. Empty means SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("datacache: unknown hash algorithm %q", name)
	}
}

// Sum returns the lowercase hex digest of data.
func (a Algorithm) Sum(data []byte) string {
	switch a {
	case BLAKE3:
		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// IsDigest reports whether s looks like a digest produced by Sum.
// Cache directory entries that fail this check are ignored.
func IsDigest(s string) bool {
	if len(s) != digestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
