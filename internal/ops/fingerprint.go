package ops

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Fingerprint hashes the full content of the file at path. MD5 is what the
// store reports as the ETag of a single part upload, so the two can be
// compared directly.
func Fingerprint(fsys afero.Fs, path string) (string, error) {
	// open for reading
	in, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	// generate the hash
	h := md5.New()
	if _, err := io.Copy(h, in); err != nil {
		return "", fmt.Errorf("failed to generate hash for %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
