package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/bank"
	"github.com/pomogitepozhaluyst/quiz3/internal/eventlog"
	"github.com/pomogitepozhaluyst/quiz3/internal/importer"
	"github.com/pomogitepozhaluyst/quiz3/internal/rbac"
)

// POST /questions
func CreateQuestionHandler(store *bank.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q bank.Question
		if !decodeJSON(w, r, &q) {
			return
		}
		if strings.TrimSpace(q.Text) == "" {
			http.Error(w, "question text required", http.StatusBadRequest)
			return
		}
		q.AuthorID = auth.SubjectFromContext(r.Context())
		created, err := store.CreateQuestion(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// GET /questions/{questionID}. Non-authors get the answer key stripped.
func GetQuestionHandler(store *bank.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		viewer := auth.SubjectFromContext(r.Context())
		if q.AuthorID != viewer && rbac.RoleFromContext(r.Context()) != "admin" {
			q = q.StripAnswers()
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /questions?category_id=&author_id=&limit=&offset=
func ListQuestionsHandler(store *bank.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		list, err := store.ListQuestions(r.Context(), bank.ListOpts{
			CategoryID: qs.Get("category_id"),
			AuthorID:   qs.Get("author_id"),
			Limit:      parseIntDefault(qs.Get("limit"), 50),
			Offset:     parseIntDefault(qs.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		viewer := auth.SubjectFromContext(r.Context())
		admin := rbac.RoleFromContext(r.Context()) == "admin"
		for i := range list {
			if list[i].AuthorID != viewer && !admin {
				list[i] = list[i].StripAnswers()
			}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /categories
func CreateCategoryHandler(store *bank.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c bank.Category
		if !decodeJSON(w, r, &c) {
			return
		}
		if strings.TrimSpace(c.Name) == "" {
			http.Error(w, "category name required", http.StatusBadRequest)
			return
		}
		created, err := store.CreateCategory(r.Context(), c)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// GET /categories
func ListCategoriesHandler(store *bank.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListCategories(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /questions/import (multipart, field "file")
func ImportQuestionsHandler(imp *importer.Importer, log *eventlog.Log, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		if hdr.Size > maxBytes {
			http.Error(w, "file too large", http.StatusBadRequest)
			return
		}

		authorID := auth.SubjectFromContext(r.Context())
		res, err := imp.Import(r.Context(), hdr.Filename, f, authorID)
		if err != nil {
			if err == importer.ErrUnsupportedFormat {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeError(w, err)
			return
		}
		_ = log.Record(r.Context(), eventlog.TypeQuestionImport, hdr.Filename, authorID,
			map[string]int{"imported": res.Imported, "failed": len(res.Errors)})
		writeJSON(w, http.StatusOK, res)
	}
}
