package datasmith

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// Hasher computes the content hash attached to a written asset.
type Hasher func(path string) (string, error)

const hashChunk = 4096

// HashFile returns the hex MD5 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashChunk)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
