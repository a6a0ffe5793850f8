package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/catalog"
	"github.com/mind-engage/lawcards/internal/logger"
	"github.com/mind-engage/lawcards/internal/remote"
)

// File is one downloaded asset, inlined as a data URL.
type File struct {
	Filename    string `json:"filename"`
	NameLocal   string `json:"nameLocal"`
	NameForeign string `json:"nameForeign"`
	MimeType    string `json:"mimeType"`
	DataURL     string `json:"dataUrl"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type Category struct {
	CategoryID   string `json:"categoryId"`
	CategoryPath string `json:"categoryPath"`
	NameLocal    string `json:"nameLocal"`
	NameForeign  string `json:"nameForeign"`
	Files        []File `json:"files"`
}

// Bundle is the payload stored in the diagrams and documents partitions.
type Bundle []Category

func (b Bundle) DerivedCount() int {
	n := 0
	for _, c := range b {
		n += len(c.Files)
	}
	return n
}

func (b Bundle) SizeBytes() int64 {
	var n int64
	for _, c := range b {
		for _, f := range c.Files {
			n += f.SizeBytes
		}
	}
	return n
}

// Find returns the file with the given name in a category.
func (b Bundle) Find(categoryID, filename string) (File, bool) {
	for _, c := range b {
		if c.CategoryID != categoryID {
			continue
		}
		for _, f := range c.Files {
			if f.Filename == filename {
				return f, true
			}
		}
	}
	return File{}, false
}

// Fetcher downloads one binary asset. *remote.Client satisfies it.
type Fetcher interface {
	FetchBinary(ctx context.Context, u string) ([]byte, string, error)
}

type Downloader struct {
	fetch   Fetcher
	store   *cache.Store
	cfg     catalog.AssetConfig
	baseURL string
	log     *logger.Logger
}

// NewDownloader builds a downloader for the listed assets. A non-empty
// baseURL overrides the one in cfg.
func NewDownloader(f Fetcher, store *cache.Store, cfg catalog.AssetConfig, baseURL string, log *logger.Logger) *Downloader {
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	return &Downloader{fetch: f, store: store, cfg: cfg, baseURL: baseURL, log: logger.OrNop(log)}
}

func Partition(kind catalog.AssetKind) cache.Partition {
	if kind == catalog.Documents {
		return cache.Documents
	}
	return cache.Diagrams
}

// Result summarizes one download pass.
type Result struct {
	Kind   catalog.AssetKind `json:"kind"`
	Saved  int               `json:"saved"`
	Failed int               `json:"failed"`
}

// Download fetches every listed file of kind, one at a time per category.
// Failed files are skipped and categories left empty are dropped. Whatever
// succeeded is saved; when nothing succeeded the existing entry is kept.
func (d *Downloader) Download(ctx context.Context, kind catalog.AssetKind) (Result, error) {
	res := Result{Kind: kind}
	if d.baseURL == "" {
		return res, errors.New("assets: base url not configured")
	}

	var bundle Bundle
	for _, ac := range d.cfg.Of(kind) {
		cat := Category{
			CategoryID:   ac.CategoryID,
			CategoryPath: ac.CategoryPath,
			NameLocal:    ac.NameLocal,
			NameForeign:  ac.NameForeign,
		}
		for _, af := range ac.Files {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			u := remote.AssetURL(d.baseURL, ac.CategoryPath, af.Filename)
			body, mt, err := d.fetch.FetchBinary(ctx, u)
			if err != nil {
				res.Failed++
				d.log.Warn("asset download failed", "kind", kind, "url", u, "error", err)
				continue
			}
			cat.Files = append(cat.Files, File{
				Filename:    af.Filename,
				NameLocal:   af.NameLocal,
				NameForeign: af.NameForeign,
				MimeType:    mt,
				DataURL:     DataURL(mt, body),
				SizeBytes:   int64(len(body)),
			})
			res.Saved++
		}
		if len(cat.Files) > 0 {
			bundle = append(bundle, cat)
		}
	}

	if len(bundle) == 0 {
		d.log.Warn("no assets downloaded; keeping cached copy", "kind", kind, "failed", res.Failed)
		return res, nil
	}
	if err := d.store.Save(ctx, Partition(kind), bundle); err != nil {
		return res, err
	}
	d.log.Info("assets cached", "kind", kind, "files", res.Saved, "bytes", bundle.SizeBytes())
	return res, nil
}

// DownloadAll runs Download for diagrams then documents, continuing past
// errors. The returned error joins every kind that failed.
func (d *Downloader) DownloadAll(ctx context.Context) ([]Result, error) {
	var (
		out  []Result
		errs []error
	)
	for _, kind := range []catalog.AssetKind{catalog.Diagrams, catalog.Documents} {
		r, err := d.Download(ctx, kind)
		out = append(out, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return out, errors.Join(errs...)
}

// Load reads the cached bundle of kind.
func Load(ctx context.Context, store *cache.Store, kind catalog.AssetKind) (Bundle, bool) {
	var b Bundle
	ok := store.Load(ctx, Partition(kind), &b)
	return b, ok
}

func Metadata(ctx context.Context, store *cache.Store, kind catalog.AssetKind) (cache.Metadata, bool) {
	return store.Metadata(ctx, Partition(kind))
}

// DataURL renders body as a base64 data URL.
func DataURL(mimeType string, body []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(body)
}

// DecodeDataURL reverses DataURL.
func DecodeDataURL(u string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", errors.New("assets: not a data url")
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("assets: malformed data url")
	}
	mt, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", errors.New("assets: data url is not base64")
	}
	body, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("assets: decode: %w", err)
	}
	return body, mt, nil
}
