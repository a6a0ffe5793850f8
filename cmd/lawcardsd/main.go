package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/mind-engage/lawcards/internal/api/http"
	"github.com/mind-engage/lawcards/internal/app"
	"github.com/mind-engage/lawcards/internal/config"
	"github.com/mind-engage/lawcards/internal/logger"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Debug("no .env file loaded", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	a, err := app.New(openCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	if cfg.APIBaseURL == "" {
		log.Warn("LAWCARDS_API_BASE_URL not set; serving bundled categories only")
	}
	if cfg.WarmOnStart {
		go func() {
			if _, ok := a.Sync.LoadCategories(ctx); !ok {
				log.Info("warm start: no fresh categories; bundled fallback in use")
			}
		}()
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	api.Mount(r, api.Deps{
		Sync:       a.Sync,
		Catalog:    a.Catalog,
		Store:      a.Store,
		Sections:   a.Sections,
		HighScores: a.HighScores,
		Markers:    a.Markers,
		Location:   cfg.Location(),
		Log:        log.With("component", "api"),
	})

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "cache", cfg.CacheBackend, "db", cfg.DBDriver)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", "error", err)
	}
}
