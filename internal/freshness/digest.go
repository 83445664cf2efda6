package freshness

import (
	"crypto/sha1" //nolint:gosec // Moodle ETags are the sha1 contenthash of the file
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// hashBufSize is the chunk size files are streamed through when hashed.
const hashBufSize = 64 * 1024

// HashFunc constructs the digest compared against freshness tokens.
type HashFunc func() hash.Hash

// DefaultHash is SHA-1, the digest Moodle exposes as the ETag of stored files.
func DefaultHash() hash.Hash {
	return sha1.New() //nolint:gosec // matches the origin's contenthash, not used for security
}

// NormalizeETag strips the weak-validator prefix and the quotes of an
// entity tag: W/"abc" and "abc" both become abc.
func NormalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	if strings.HasPrefix(etag, `W/"`) && strings.HasSuffix(etag, `"`) && len(etag) >= 4 {
		return etag[3 : len(etag)-1]
	}
	if strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) && len(etag) >= 2 {
		return etag[1 : len(etag)-1]
	}
	return etag
}

// FileDigest streams the file at path through newHash in fixed-size chunks
// and returns the lowercase hex digest. A nil newHash means DefaultHash.
func FileDigest(path string, newHash HashFunc) (string, error) {
	if newHash == nil {
		newHash = DefaultHash
	}

	f, err := os.Open(path) //nolint:gosec // path is a shadow file chosen by the engine
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := newHash()
	buf := make([]byte, hashBufSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) //nolint:errcheck // hash.Hash.Write never returns an error
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the lowercase hex digest of data.
func Digest(data []byte, newHash HashFunc) string {
	if newHash == nil {
		newHash = DefaultHash
	}
	h := newHash()
	h.Write(data) //nolint:errcheck // hash.Hash.Write never returns an error
	return hex.EncodeToString(h.Sum(nil))
}
