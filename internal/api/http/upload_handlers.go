package http

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pomogitepozhaluyst/quiz3/internal/storage"
)

// UploadHandler accepts one multipart file (field "file") for the given
// media kind and returns its public URL.
func UploadHandler(up *storage.Uploader, kind storage.MediaKind, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		url, err := up.Save(kind, hdr.Filename, hdr.Header.Get("Content-Type"), hdr.Size, f)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrBadMediaType), errors.Is(err, storage.ErrTooLarge):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				writeError(w, err)
			}
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	}
}

// ServeUploadHandler streams a stored file back. Mounted under
// /uploads/{kind}/{name}. Keys that do not name a plain two-segment path
// under the base (dot segments, separators smuggled through the params)
// are treated as absent.
func ServeUploadHandler(store storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "kind") + "/" + chi.URLParam(r, "name")
		if !fs.ValidPath(key) || strings.Contains(key, `\`) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		rc, err := store.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		_, _ = io.Copy(w, rc)
	}
}
