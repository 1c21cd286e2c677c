package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalURLPrefix is the public path local documents are served under.
const LocalURLPrefix = "/uploads/"

// createExclusive opens a new file for writing and fails if it exists.
// Tests swap it to inject write failures.
var createExclusive = func(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
}

// LocalStore writes documents into a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(_ context.Context, name string, body []byte) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	full := filepath.Join(s.dir, name)
	f, err := createExclusive(full)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", ErrDocumentExists
		}
		return "", fmt.Errorf("create document: %w", err)
	}
	// A partial file would block a retry under the same name.
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close document: %w", err)
	}

	return LocalURLPrefix + name, nil
}

func (s *LocalStore) Get(_ context.Context, location string) ([]byte, error) {
	name := strings.TrimPrefix(location, LocalURLPrefix)
	if !validName(name) {
		return nil, ErrDocumentNotFound
	}

	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return b, nil
}

// validName accepts a single path element only.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && path.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
