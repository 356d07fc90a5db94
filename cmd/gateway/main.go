package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-courseware/internal/access"
	api "github.com/mind-engage/mindengage-courseware/internal/api/http"
	auth "github.com/mind-engage/mindengage-courseware/internal/auth/middleware"
	"github.com/mind-engage/mindengage-courseware/internal/blocks"
	"github.com/mind-engage/mindengage-courseware/internal/config"
	"github.com/mind-engage/mindengage-courseware/internal/contentsource"
	"github.com/mind-engage/mindengage-courseware/internal/courseevents"
	"github.com/mind-engage/mindengage-courseware/internal/db"
	"github.com/mind-engage/mindengage-courseware/internal/gating"
	"github.com/mind-engage/mindengage-courseware/internal/grading"
	"github.com/mind-engage/mindengage-courseware/internal/proctoring"
	"github.com/mind-engage/mindengage-courseware/internal/rbac"
	"github.com/mind-engage/mindengage-courseware/internal/transform"
	"github.com/mind-engage/mindengage-courseware/internal/transform/milestones"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Content provider ---
	var provider contentsource.Provider
	if _, statErr := os.Stat(cfg.CourseDir); statErr == nil {
		p, err := contentsource.LoadDir(cfg.CourseDir)
		if err != nil {
			log.Fatalf("load courses from %s: %v", cfg.CourseDir, err)
		}
		provider = p
	} else {
		log.Printf("course dir %s missing, starting with no courses", cfg.CourseDir)
		provider = contentsource.NewMemoryProvider()
	}

	// --- Stores and oracles ---
	gatingStore := gating.NewSQLStore(dbh)
	scores := grading.NewSQLScoreStore(dbh)
	examOracle := proctoring.NewSQLOracle(dbh)
	roleStore := access.NewSQLRoleStore(dbh)

	gateSvc := gating.NewService(gatingStore, provider, grading.NewSubtreeAggregator(scores))
	recorder := courseevents.NewRecorder(
		grading.NewDefaultGrader(), scores, courseevents.NewSQLEventRepo(dbh), gateSvc)

	// --- Pipeline ---
	var cache blocks.StructureCache
	switch {
	case !cfg.EnableStructureCache:
		cache = blocks.NewNopCache()
	case cfg.RedisAddr != "":
		cache = blocks.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.StructureTTL)
	default:
		cache = blocks.NewMemoryCache(cfg.CacheCapacity)
	}
	pipeline := transform.NewPipeline(provider, cache)
	err = pipeline.Register(milestones.New(
		milestones.Config{EnableSpecialExams: cfg.EnableSpecialExams},
		examOracle, gateSvc, roleStore))
	if err != nil {
		log.Fatalf("register transformer: %v", err)
	}

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.AdminUser, cfg.AdminPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("blocks:view")).
			Get("/courses/{courseID}/blocks", api.GetCourseBlocksHandler(pipeline, provider))

		pr.With(rbac.Require("scores:submit")).
			Post("/responses", api.SubmitResponseHandler(recorder, provider))
		pr.With(rbac.Require("scores:submit")).
			Post("/scores", api.RecordScoreHandler(recorder))

		pr.With(rbac.Require("gating:view")).
			Get("/courses/{courseID}/gating/prerequisites", api.ListPrerequisitesHandler(gateSvc))
		pr.With(rbac.Require("gating:edit")).
			Post("/courses/{courseID}/gating/prerequisites", api.AddPrerequisiteHandler(gateSvc))
		pr.With(rbac.Require("gating:edit")).
			Delete("/courses/{courseID}/gating/prerequisites", api.RemovePrerequisiteHandler(gateSvc))
		pr.With(rbac.Require("gating:edit")).
			Put("/courses/{courseID}/gating/required", api.SetRequiredContentHandler(gateSvc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s, special_exams=%v)",
		cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.EnableSpecialExams)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
