package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/brightpath-edu/academy-api/internal/api/http"
	auth "github.com/brightpath-edu/academy-api/internal/auth/middleware"
	"github.com/brightpath-edu/academy-api/internal/config"
	"github.com/brightpath-edu/academy-api/internal/db"
	"github.com/brightpath-edu/academy-api/internal/eventlog"
	"github.com/brightpath-edu/academy-api/internal/grading"
	"github.com/brightpath-edu/academy-api/internal/quiz"
	"github.com/brightpath-edu/academy-api/internal/rbac"
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

	store := quiz.NewSQLStore(dbh, cfg.DBDriver)
	svc := quiz.NewService(store, grading.NewDefaultGrader())
	events := eventlog.NewRepo(dbh)
	authSvc := auth.NewAuthService(cfg.AuthSecret, time.Duration(cfg.TokenTTLHr)*time.Hour)

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

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Exams (teacher/admin)
		pr.With(rbac.Require("exam:manage")).
			Post("/exams", api.CreateExamHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/exams", api.ListExamsHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("exam:manage")).
			Delete("/exams/{examID}", api.DeleteExamHandler(store))

		// Quiz management
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(store))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("quiz:update")).
			Put("/quizzes/{quizID}", api.UpdateQuizHandler(store))
		pr.With(rbac.Require("quiz:delete")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(svc, events))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/quizzes/{quizID}/attempts", api.StartAttemptHandler(svc, events))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/answers", api.SubmitAnswerHandler(svc))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/complete", api.CompleteAttemptHandler(svc, events))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(svc))

		// Instructor reporting
		pr.With(rbac.Require("results:view")).
			Get("/quizzes/{quizID}/results", api.ResultsHandler(svc))

		// Users (teacher/admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
