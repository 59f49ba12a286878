package plugin

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// registers crypto.MD5
	_ "crypto/md5"
)

const (
	// ChecksumFunction is the digest Jellyfin expects in a manifest's checksum field.
	// It identifies the artifact; it is not a security guarantee.
	ChecksumFunction crypto.Hash = crypto.MD5

	checksumChunkSize = 1024 * 1024
)

var errHashUnavailable = errors.New("hash function unavailable")

// FileChecksum returns the lowercase hex digest of the file at path, reading it chunk by chunk.
func FileChecksum(path string) (string, error) {
	if !ChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := ChecksumFunction.New()
	buf := make([]byte, checksumChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
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
