package datasmith

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeAtomic runs fn against a pending file beside path and replaces path
// only when fn succeeds. On failure the pending file is removed and path is
// left untouched.
func writeAtomic(path string, fn func(w io.WriteSeeker) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithTempDir(dir), renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	if err := fn(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}
