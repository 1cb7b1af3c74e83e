package storage

import (
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MediaKind is an upload channel with its own type and size rules.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

var (
	ErrBadMediaType = errors.New("unsupported media type")
	ErrTooLarge     = errors.New("file too large")
)

// Limits caps the accepted upload size per kind, in bytes.
type Limits struct {
	Image int64
	Video int64
	Audio int64
}

type Uploader struct {
	store  BlobStore
	limits Limits
}

func NewUploader(store BlobStore, limits Limits) *Uploader {
	return &Uploader{store: store, limits: limits}
}

// Save validates the upload against the kind's rules, stores it under a
// random name and returns the public URL. The original filename only
// contributes its extension.
func (u *Uploader) Save(kind MediaKind, filename, contentType string, size int64, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, string(kind)+"/") {
		return "", ErrBadMediaType
	}
	limit := u.limit(kind)
	if limit > 0 && size > limit {
		return "", ErrTooLarge
	}

	ext := strings.ToLower(path.Ext(filename))
	key := path.Join(string(kind)+"s", uuid.NewString()+ext)
	if limit > 0 {
		// LimitReader guards against a lying Content-Length.
		r = io.LimitReader(r, limit+1)
	}
	key, err := u.store.Put(key, r)
	if err != nil {
		return "", err
	}
	return u.store.URL(key), nil
}

func (u *Uploader) limit(kind MediaKind) int64 {
	switch kind {
	case KindImage:
		return u.limits.Image
	case KindVideo:
		return u.limits.Video
	case KindAudio:
		return u.limits.Audio
	}
	return 0
}
