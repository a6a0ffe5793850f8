package assets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/catalog"
	"github.com/mind-engage/lawcards/internal/storage"
)

// Exported is one asset written to a blob store.
type Exported struct {
	CategoryID string `json:"categoryId"`
	Filename   string `json:"filename"`
	Key        string `json:"key"`
	URL        string `json:"url"`
}

// Export writes every cached file of kind to blobs. It stops at the first
// write error; an absent cache entry exports nothing.
func Export(ctx context.Context, store *cache.Store, blobs storage.BlobStore, kind catalog.AssetKind) ([]Exported, error) {
	bundle, ok := Load(ctx, store, kind)
	if !ok {
		return nil, nil
	}
	var out []Exported
	for _, c := range bundle {
		for _, f := range c.Files {
			body, _, err := DecodeDataURL(f.DataURL)
			if err != nil {
				return out, fmt.Errorf("%s/%s: %w", c.CategoryID, f.Filename, err)
			}
			key, err := blobs.Put(ctx, storage.Key(string(kind), c.CategoryPath, f.Filename), bytes.NewReader(body))
			if err != nil {
				return out, fmt.Errorf("put %s: %w", f.Filename, err)
			}
			u, _ := blobs.URL(key)
			out = append(out, Exported{CategoryID: c.CategoryID, Filename: f.Filename, Key: key, URL: u})
		}
	}
	return out, nil
}
