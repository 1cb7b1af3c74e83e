package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

type memBlob struct {
	files map[string][]byte
}

func (m *memBlob) Put(key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[key] = b
	return key, nil
}

func (m *memBlob) Get(key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.files[key])), nil
}

func (m *memBlob) URL(key string) string { return "/uploads/" + key }

func TestUploaderSave(t *testing.T) {
	blob := &memBlob{}
	up := NewUploader(blob, Limits{Image: 1024})

	url, err := up.Save(KindImage, "photo.PNG", "image/png", 10, strings.NewReader("0123456789"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/images/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q", url)
	}
	if len(blob.files) != 1 {
		t.Fatalf("stored %d files, want 1", len(blob.files))
	}
	for key := range blob.files {
		if strings.Contains(key, "photo") {
			t.Errorf("key %q leaks the original filename", key)
		}
	}
}

func TestUploaderRejectsWrongType(t *testing.T) {
	up := NewUploader(&memBlob{}, Limits{Image: 1024})
	if _, err := up.Save(KindImage, "x.mp4", "video/mp4", 10, strings.NewReader("x")); err != ErrBadMediaType {
		t.Fatalf("err = %v, want ErrBadMediaType", err)
	}
}

func TestUploaderRejectsOversize(t *testing.T) {
	up := NewUploader(&memBlob{}, Limits{Audio: 4})
	if _, err := up.Save(KindAudio, "x.mp3", "audio/mpeg", 5, strings.NewReader("12345")); err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
