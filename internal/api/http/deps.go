package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/highscore"
	"github.com/mind-engage/lawcards/internal/logger"
	"github.com/mind-engage/lawcards/internal/sections"
	"github.com/mind-engage/lawcards/internal/syncx"
)

// Syncer is the orchestrator surface used by handlers.
type Syncer interface {
	LoadCategories(ctx context.Context) ([]content.Category, bool)
	DownloadData(ctx context.Context) (syncx.DownloadResult, error)
	CheckCache(ctx context.Context) (cache.Metadata, bool)
	Status() syncx.Status
}

// Catalog supplies the bundled fallback and per-category filtering.
type Catalog interface {
	Categories() []content.Category
	FilterCards(categoryID string, cards []content.Card) []content.Card
	IsAllowed(categoryID, cardID string) bool
}

// Deps are the collaborators mounted by Mount.
type Deps struct {
	Sync       Syncer
	Catalog    Catalog
	Store      *cache.Store
	Sections   *sections.Service
	HighScores *highscore.Book
	Markers    content.Markers
	Location   *time.Location // for human-readable dates; nil = local
	Log        *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// categories returns filtered categories from cache or origin, falling back
// to the bundled configuration. fromBundle reports the fallback.
func categories(ctx context.Context, d Deps) (cats []content.Category, fromBundle bool) {
	loaded, ok := d.Sync.LoadCategories(ctx)
	if !ok {
		loaded, fromBundle = d.Catalog.Categories(), true
	}
	out := make([]content.Category, 0, len(loaded))
	for _, c := range loaded {
		c.Questions = d.Catalog.FilterCards(c.ID, c.Questions)
		out = append(out, c)
	}
	return out, fromBundle
}

func findCategory(cats []content.Category, id string) (content.Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return content.Category{}, false
}

// urlParam returns a decoded, trimmed route parameter. chi routes on RawPath
// when the request carries one, leaving parameters escaped.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		v = u
	}
	return strings.TrimSpace(v)
}
