package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DocumentExtension is the file extension of every configuration document.
const DocumentExtension = ".yaml"

// DocumentSource reads the raw bytes of a named document. Implementations
// must return an error wrapping fs.ErrNotExist when the document is absent.
type DocumentSource interface {
	// Read returns the raw document content for name (without extension).
	Read(name string) ([]byte, error)

	// Location describes where documents come from, for logs and errors.
	Location() string
}

// DirSource reads documents from <Dir>/<name>.yaml.
type DirSource struct {
	Dir string
}

// NewDirSource returns a DirSource for dir. It fails with a NotFound
// ConfigError when dir does not exist or is not a directory.
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newConfigError(KindNotFound, "", fmt.Errorf("configuration directory not found: %s", dir))
		}
		return nil, newConfigError(KindNotFound, "", fmt.Errorf("configuration directory %s: %w", dir, err))
	}
	if !info.IsDir() {
		return nil, newConfigError(KindNotFound, "", fmt.Errorf("configuration path is not a directory: %s", dir))
	}
	return &DirSource{Dir: dir}, nil
}

// Read implements DocumentSource.
func (s *DirSource) Read(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.Dir, name+DocumentExtension))
}

// Location implements DocumentSource.
func (s *DirSource) Location() string {
	return s.Dir
}

// FSSource reads documents from an fs.FS, such as an embed.FS or fstest.MapFS.
type FSSource struct {
	FS fs.FS

	// Root is an optional directory inside FS.
	Root string
}

// Read implements DocumentSource.
func (s *FSSource) Read(name string) ([]byte, error) {
	p := name + DocumentExtension
	if s.Root != "" {
		p = s.Root + "/" + p
	}
	return fs.ReadFile(s.FS, p)
}

// Location implements DocumentSource.
func (s *FSSource) Location() string {
	if s.Root == "" {
		return "fs:"
	}
	return "fs:" + s.Root
}
