package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// FilesystemOutput writes every dumped exchange to its own file in a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh `exchanges-<timestamp>-*` directory
// under dir, nothing already in dir is touched.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return FilesystemOutput{}, err
	}
	run, err := os.MkdirTemp(dir, fmt.Sprintf("exchanges-%s-*", time.Now().Format("20060102-150405")))
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: run}, nil
}

// Dir is the directory the exchanges are written to.
func (o FilesystemOutput) Dir() string {
	return o.directory
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (o FilesystemOutput) Write(id string, contents string) {
	name := unsafeFileChars.ReplaceAllString(id, "_")
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write exchange dump", "id", id, "err", err)
	}
}
