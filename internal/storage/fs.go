package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", errors.New("key escapes the upload base")
	}
	dst := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

// Get refuses any key that would resolve outside the upload base.
func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return nil, fs.ErrNotExist
	}
	return os.Open(filepath.Join(s.base, filepath.FromSlash(key)))
}

func (s *FSStore) URL(key string) string {
	return path.Join("/uploads", key)
}
