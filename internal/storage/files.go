package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data next to path and renames it over path, so
// readers see either the old or the new contents.
func writeFileAtomic(path string, write func(tmp string) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	err = tmp.Close()
	if err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}

	err = write(tmpPath)
	if err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}
	err = os.Rename(tmpPath, path)
	if err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}
	return nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "connect", Path: dir, Err: errors.New("not a directory")}
	}
	return nil
}
