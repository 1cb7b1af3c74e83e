package http

import (
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pomogitepozhaluyst/quiz3/internal/storage"
)

type fakeBlobStore struct {
	files map[string]string
	gets  []string
}

func (f *fakeBlobStore) Put(key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.files[key] = string(b)
	return key, nil
}

func (f *fakeBlobStore) Get(key string) (io.ReadCloser, error) {
	f.gets = append(f.gets, key)
	body, ok := f.files[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeBlobStore) URL(key string) string { return "/uploads/" + key }

var _ storage.BlobStore = (*fakeBlobStore)(nil)

func uploadRouter(blob *fakeBlobStore) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/uploads/{kind}/{name}", ServeUploadHandler(blob))
	return r
}

func TestServeUploadStreamsStoredFile(t *testing.T) {
	blob := &fakeBlobStore{files: map[string]string{"images/pic.png": "png-bytes"}}
	r := uploadRouter(blob)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/images/pic.png", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/images/missing.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: status = %d, want 404", rec.Code)
	}
}

// Dot segments smuggled through the path params must never reach the store,
// otherwise a request like /uploads/../quiz.db reads files next to the
// upload base.
func TestServeUploadRejectsDotSegments(t *testing.T) {
	blob := &fakeBlobStore{files: map[string]string{}}
	r := uploadRouter(blob)

	for _, target := range []string{
		"/uploads/../quiz.db",
		"/uploads/./quiz.db",
		"/uploads/images/..",
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want 404", target, rec.Code)
		}
	}
	if len(blob.gets) != 0 {
		t.Errorf("store was queried for %v", blob.gets)
	}
}
