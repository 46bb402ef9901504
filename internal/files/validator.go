// Package files validates outgoing files and stores incoming ones.
package files

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// FileInfo describes a file that passed validation: absolute path, bare
// filename, byte size, and the MIME type guessed from the extension.
type FileInfo struct {
	Path string
	Name string
	Size int64
	Type string
}

// ValidateFile checks that path names a readable, non-empty regular file
// and resolves the metadata announced to the peer.
func ValidateFile(path string) (FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: resolve path: %w", path, err)
	}

	stat, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		return FileInfo{}, fmt.Errorf("%s: no such file", path)
	case err != nil:
		return FileInfo{}, fmt.Errorf("%s: stat: %w", path, err)
	case stat.IsDir():
		return FileInfo{}, fmt.Errorf("%s: is a directory, only single files can be sent", path)
	case stat.Size() == 0:
		return FileInfo{}, fmt.Errorf("%s: empty file", path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: not readable: %w", path, err)
	}
	f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(abs))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return FileInfo{
		Path: abs,
		Name: filepath.Base(abs),
		Size: stat.Size(),
		Type: mimeType,
	}, nil
}
