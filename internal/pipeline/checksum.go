package pipeline

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"
)

// Checksum returns the sha256 of the file at path.
func Checksum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// SameContent reports whether the file at path already holds exactly data.
// Any error reading path counts as a difference.
func SameContent(path string, data []byte) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() != int64(len(data)) {
		return false
	}

	sum, err := Checksum(path)
	if err != nil {
		return false
	}

	want := sha256.Sum256(data)
	return bytes.Equal(sum, want[:])
}
