package checksum

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const bufferSize = 1024 * 1024 // 1MB buffer

var (
	// ErrOpen is wrapped when the file to hash cannot be opened.
	ErrOpen = errors.New("open file for hashing")
	// ErrHash is wrapped when reading the content fails mid-stream.
	ErrHash = errors.New("compute content hash")
)

// HashFile calculates the xxHash64 digest of a file.
//
// Hashing happens on the calling goroutine. The hash runs at roughly memory
// bandwidth, so the cost is dominated by the read and is not handed to a
// separate worker.
func HashFile(filePath string) (uint64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer file.Close()

	sum, err := Hash(file)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", filePath, err)
	}
	return sum, nil
}

// Hash calculates the xxHash64 digest of everything read from r
func Hash(r io.Reader) (uint64, error) {
	digest := xxhash.New()
	buffer := make([]byte, bufferSize)

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			// xxhash.Digest.Write never fails
			_, _ = digest.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: read: %w", ErrHash, err)
		}
	}

	return digest.Sum64(), nil
}

// FormatHex renders a digest as upper-case hexadecimal without padding.
func FormatHex(sum uint64) string {
	return fmt.Sprintf("%X", sum)
}

// ParseHex is the inverse of FormatHex.
func ParseHex(s string) (uint64, error) {
	sum, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return sum, nil
}
