package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/mind-engage/lawcards/internal/assets"
	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/catalog"
	"github.com/mind-engage/lawcards/internal/syncx"
)

// GET /categories
func ListCategoriesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, fromBundle := categories(r.Context(), d)
		writeJSON(w, http.StatusOK, map[string]any{
			"categories": cats,
			"bundled":    fromBundle,
		})
	}
}

// POST /sync
func SyncHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The refresh outlives the request.
		res, err := d.Sync.DownloadData(context.WithoutCancel(r.Context()))
		switch {
		case errors.Is(err, syncx.ErrDownloadInProgress):
			writeError(w, http.StatusConflict, "download already in progress")
			return
		case err != nil:
			d.Log.Warn("sync failed", "error", err)
			writeError(w, http.StatusBadGateway, syncx.UserMessage(err))
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /cache/status
func CacheStatusHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		d.Sync.CheckCache(ctx)
		parts := map[string]*cache.Metadata{}
		for _, p := range []cache.Partition{cache.Descriptions, cache.HighScores} {
			if md, ok := d.Store.Metadata(ctx, p); ok {
				parts[string(p)] = &md
			}
		}
		for _, k := range []catalog.AssetKind{catalog.Diagrams, catalog.Documents} {
			if md, ok := assets.Metadata(ctx, d.Store, k); ok {
				parts[string(k)] = &md
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     d.Sync.Status(),
			"partitions": parts,
		})
	}
}

// GET /sections
func ListSectionsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, _ := categories(r.Context(), d)
		writeJSON(w, http.StatusOK, map[string]any{
			"groups": d.Sections.All(r.Context(), cats),
			"total":  d.Sections.TotalCount(),
		})
	}
}

// GET /sections/{categoryID}
func CategorySectionsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := urlParam(r, "categoryID")
		if id == "" {
			writeError(w, http.StatusBadRequest, "categoryID required")
			return
		}
		ids := d.Sections.CategorySections(id)
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"categoryId": id, "sectionIds": ids})
	}
}
