package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/lawcards/internal/logger"
)

const requestTimeout = 30 * time.Second

// Mount registers the local API on r.
func Mount(r chi.Router, d Deps) {
	d.Log = logger.OrNop(d.Log)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// A full refresh runs past requestTimeout.
	r.Post("/sync", SyncHandler(d))

	r.Group(func(tr chi.Router) {
		tr.Use(middleware.Timeout(requestTimeout))
		tr.Get("/categories", ListCategoriesHandler(d))
		tr.Get("/cache/status", CacheStatusHandler(d))
		tr.Get("/sections", ListSectionsHandler(d))
		tr.Get("/sections/{categoryID}", CategorySectionsHandler(d))
		tr.Get("/quiz/{categoryID}", QuizHandler(d))
		tr.Post("/quiz/{categoryID}/answer", ScoreAnswerHandler(d))
		tr.Get("/highscores", ListHighScoresHandler(d))
		tr.Post("/highscores/{categoryID}", SubmitHighScoreHandler(d))
		tr.Route("/assets", func(ar chi.Router) { MountAssets(ar, d) })
	})
}
