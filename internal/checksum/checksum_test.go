package checksum

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct {
	after int
	read  int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read >= r.after {
		return 0, errors.New("device went away")
	}
	n := len(p)
	if n > r.after-r.read {
		n = r.after - r.read
	}
	r.read += n
	return n, nil
}

func TestHashFile(t *testing.T) {
	tmpDir := t.TempDir()

	large := bytes.Repeat([]byte("0123456789abcdef"), (3*bufferSize)/16+7)

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "empty file", content: nil},
		{name: "small file", content: []byte("hello")},
		{name: "exact buffer", content: bytes.Repeat([]byte{0xAB}, bufferSize)},
		{name: "multiple buffers", content: large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.content, 0644))

			got, err := HashFile(path)
			require.NoError(t, err)
			assert.Equal(t, xxhash.Sum64(tt.content), got)
		})
	}
}

func TestHashFileEmptyDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xEF46DB3751D8E999), got)
}

func TestHashFileDetectsSingleByteChange(t *testing.T) {
	tmpDir := t.TempDir()
	original := bytes.Repeat([]byte("media"), 100000)
	altered := append([]byte(nil), original...)
	altered[len(altered)/2] ^= 0x01

	a := filepath.Join(tmpDir, "a")
	b := filepath.Join(tmpDir, "b")
	require.NoError(t, os.WriteFile(a, original, 0644))
	require.NoError(t, os.WriteFile(b, altered, 0644))

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOpen))
}

func TestHashReadFailure(t *testing.T) {
	_, err := Hash(&failingReader{after: bufferSize + 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHash))
}

func TestHashReader(t *testing.T) {
	got, err := Hash(io.LimitReader(bytes.NewReader([]byte("hello world")), 5))
	require.NoError(t, err)
	assert.Equal(t, xxhash.Sum64String("hello"), got)
}

func TestFormatHex(t *testing.T) {
	tests := []struct {
		sum  uint64
		want string
	}{
		{0, "0"},
		{0xABC, "ABC"},
		{0xEF46DB3751D8E999, "EF46DB3751D8E999"},
		{^uint64(0), "FFFFFFFFFFFFFFFF"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHex(tt.sum))

			back, err := ParseHex(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.sum, back)
		})
	}

	_, err := ParseHex("not-hex")
	assert.Error(t, err)
}
