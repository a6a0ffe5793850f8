package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/lawcards/internal/assets"
	"github.com/mind-engage/lawcards/internal/catalog"
)

// MountAssets serves cached diagrams and documents.
func MountAssets(r chi.Router, d Deps) {
	// GET /assets/{kind}
	r.Get("/{kind}", func(w http.ResponseWriter, r *http.Request) {
		kind, ok := assetKind(urlParam(r, "kind"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown asset kind")
			return
		}
		b, _ := assets.Load(r.Context(), d.Store, kind)
		if b == nil {
			b = assets.Bundle{}
		}
		// Listing without inline bodies.
		type listed struct {
			CategoryID string   `json:"categoryId"`
			NameLocal  string   `json:"nameLocal"`
			Files      []string `json:"files"`
		}
		out := make([]listed, 0, len(b))
		for _, c := range b {
			l := listed{CategoryID: c.CategoryID, NameLocal: c.NameLocal}
			for _, f := range c.Files {
				l.Files = append(l.Files, f.Filename)
			}
			out = append(out, l)
		}
		writeJSON(w, http.StatusOK, out)
	})

	// GET /assets/{kind}/{categoryID}/{filename}
	r.Get("/{kind}/{categoryID}/{filename}", func(w http.ResponseWriter, r *http.Request) {
		kind, ok := assetKind(urlParam(r, "kind"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown asset kind")
			return
		}
		b, ok := assets.Load(r.Context(), d.Store, kind)
		if !ok {
			writeError(w, http.StatusNotFound, "assets not downloaded")
			return
		}
		f, ok := b.Find(urlParam(r, "categoryID"), urlParam(r, "filename"))
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		body, mt, err := assets.DecodeDataURL(f.DataURL)
		if err != nil {
			d.Log.Warn("corrupt cached asset", "file", f.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "corrupt asset")
			return
		}
		w.Header().Set("Content-Type", mt)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	})
}

func assetKind(s string) (catalog.AssetKind, bool) {
	switch k := catalog.AssetKind(s); k {
	case catalog.Diagrams, catalog.Documents:
		return k, true
	}
	return "", false
}
