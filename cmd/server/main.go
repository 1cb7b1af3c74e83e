package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/pomogitepozhaluyst/quiz3/internal/api/http"
	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/bank"
	"github.com/pomogitepozhaluyst/quiz3/internal/config"
	"github.com/pomogitepozhaluyst/quiz3/internal/db"
	"github.com/pomogitepozhaluyst/quiz3/internal/eventlog"
	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
	"github.com/pomogitepozhaluyst/quiz3/internal/group"
	"github.com/pomogitepozhaluyst/quiz3/internal/importer"
	"github.com/pomogitepozhaluyst/quiz3/internal/rbac"
	"github.com/pomogitepozhaluyst/quiz3/internal/stats"
	"github.com/pomogitepozhaluyst/quiz3/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Stores ---
	examStore := exam.NewSQLStore(dbh)
	bankStore := bank.NewSQLStore(dbh)
	groupStore := group.NewSQLStore(dbh)
	statsStore := stats.NewSQLStore(dbh)
	userStore := auth.NewUserStore(dbh)
	events := eventlog.NewLog(dbh)

	sessions := exam.NewService(examStore, examStore, examStore,
		exam.WithCompletionListener(statsStore),
		exam.WithCompletionListener(events))

	imp := importer.New(bankStore)

	fs, err := storage.NewFSStore(cfg.UploadBasePath)
	if err != nil {
		log.Fatalf("upload store: %v", err)
	}
	mb := int64(1 << 20)
	uploader := storage.NewUploader(fs, storage.Limits{
		Image: cfg.MaxImageMB * mb,
		Video: cfg.MaxVideoMB * mb,
		Audio: cfg.MaxAudioMB * mb,
	})

	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", api.RegisterHandler(userStore, authSvc))
	r.Post("/auth/login", api.LoginHandler(userStore, authSvc))
	r.Get("/uploads/{kind}/{name}", api.ServeUploadHandler(fs))

	// Protected API (JWT → DB role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh))

		pr.Get("/users/me", api.MeHandler(userStore))
		// Teachers need user lookup to grant per-user test access.
		pr.With(rbac.RequireAny("users:list", "test:grant")).
			Get("/users", api.ListUsersHandler(userStore))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(userStore))

		// Question bank
		pr.With(rbac.Require("question:create")).
			Post("/questions", api.CreateQuestionHandler(bankStore))
		pr.With(rbac.Require("question:view")).
			Get("/questions", api.ListQuestionsHandler(bankStore))
		pr.With(rbac.Require("question:view")).
			Get("/questions/{questionID}", api.GetQuestionHandler(bankStore))
		pr.With(rbac.Require("question:import")).
			Post("/questions/import", api.ImportQuestionsHandler(imp, events, cfg.MaxImportMB*mb))
		pr.With(rbac.Require("category:create")).
			Post("/categories", api.CreateCategoryHandler(bankStore))
		pr.With(rbac.Require("question:view")).
			Get("/categories", api.ListCategoriesHandler(bankStore))

		// Tests
		pr.With(rbac.Require("test:create")).
			Post("/tests", api.CreateTestHandler(examStore, events))
		pr.With(rbac.Require("test:view")).
			Get("/tests", api.ListTestsHandler(examStore))
		pr.With(rbac.Require("test:view")).
			Get("/tests/{testID}", api.GetTestHandler(examStore, bankStore))
		pr.With(rbac.Require("test:grant")).
			Post("/tests/{testID}/access", api.GrantAccessHandler(examStore))
		pr.With(rbac.Require("test:grant")).
			Get("/tests/{testID}/access", api.ListAccessHandler(examStore))
		pr.With(rbac.Require("test:grant")).
			Delete("/tests/{testID}/access/{userID}", api.RevokeAccessHandler(examStore))

		// Sessions
		pr.With(rbac.Require("session:start")).
			Post("/sessions", api.StartSessionHandler(sessions))
		pr.With(rbac.Require("session:answer")).
			Post("/sessions/{sessionID}/answers", api.SubmitAnswerHandler(sessions))
		pr.With(rbac.Require("session:complete")).
			Post("/sessions/{sessionID}/complete", api.CompleteSessionHandler(sessions))
		pr.With(rbac.Require("session:view-own")).
			Get("/sessions/{sessionID}", api.GetSessionHandler(sessions))
		pr.With(rbac.Require("session:view-own")).
			Get("/tests/{testID}/sessions", api.SessionHistoryHandler(sessions))

		// Study groups
		pr.With(rbac.Require("group:view")).
			Get("/groups", api.ListGroupsHandler(groupStore))
		pr.With(rbac.Require("group:view")).
			Get("/groups/my", api.MyGroupsHandler(groupStore))
		pr.With(rbac.Require("group:view")).
			Get("/groups/by-code/{code}", api.FindGroupByCodeHandler(groupStore))
		pr.With(rbac.Require("group:create")).
			Post("/groups", api.CreateGroupHandler(groupStore))
		pr.With(rbac.Require("group:join")).
			Post("/groups/join-by-code", api.JoinGroupByCodeHandler(groupStore, events))
		pr.With(rbac.Require("group:join")).
			Post("/groups/{groupID}/join", api.JoinGroupHandler(groupStore, events))
		pr.With(rbac.Require("group:view")).
			Get("/groups/{groupID}/members", api.ListGroupMembersHandler(groupStore))
		pr.With(rbac.Require("group:assign")).
			Post("/groups/{groupID}/tests", api.AssignTestHandler(groupStore))
		pr.With(rbac.Require("group:view")).
			Get("/groups/{groupID}/tests", api.ListGroupTestsHandler(groupStore))
		pr.With(rbac.Require("group:view")).
			Get("/groups/{groupID}/stats", api.GroupStatsHandler(groupStore))

		// Statistics
		pr.With(rbac.Require("stats:view-own")).
			Get("/statistics/me", api.UserStatsHandler(statsStore))

		// Media uploads
		pr.With(rbac.Require("upload:create")).
			Post("/upload/image", api.UploadHandler(uploader, storage.KindImage, cfg.MaxImageMB*mb))
		pr.With(rbac.Require("upload:create")).
			Post("/upload/video", api.UploadHandler(uploader, storage.KindVideo, cfg.MaxVideoMB*mb))
		pr.With(rbac.Require("upload:create")).
			Post("/upload/audio", api.UploadHandler(uploader, storage.KindAudio, cfg.MaxAudioMB*mb))

		// Admin
		pr.With(rbac.Require("events:list")).
			Get("/admin/events", api.ListEventsHandler(events))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
