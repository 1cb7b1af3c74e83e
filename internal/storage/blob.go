// Package storage persists uploaded media files and enforces the per-kind
// type and size limits.
package storage

import "io"

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) string // public path the file is served under
}
