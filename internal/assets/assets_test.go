package assets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/catalog"
)

type fakeFetcher struct {
	bodies map[string][]byte
	calls  []string
}

func (f *fakeFetcher) FetchBinary(_ context.Context, u string) ([]byte, string, error) {
	f.calls = append(f.calls, u)
	for suffix, b := range f.bodies {
		if strings.HasSuffix(u, suffix) {
			return b, "image/png", nil
		}
	}
	return nil, "", errors.New("not found")
}

func testConfig() catalog.AssetConfig {
	return catalog.AssetConfig{
		BaseURL: "https://assets.example",
		Diagrams: []catalog.AssetCategory{
			{CategoryID: "loan", CategoryPath: "diagrams/loan", Files: []catalog.AssetFile{{Filename: "a.png"}, {Filename: "b.png"}}},
			{CategoryID: "dead", CategoryPath: "diagrams/dead", Files: []catalog.AssetFile{{Filename: "gone.png"}}},
		},
	}
}

func TestDownload_SkipsFailuresAndDropsEmptyCategories(t *testing.T) {
	ctx := context.Background()
	store := cache.New(cache.NewMemoryBackend())
	f := &fakeFetcher{bodies: map[string][]byte{"/diagrams/loan/a.png": {1, 2, 3}}}
	d := NewDownloader(f, store, testConfig(), "", nil)

	res, err := d.Download(ctx, catalog.Diagrams)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if res.Saved != 1 || res.Failed != 2 || len(f.calls) != 3 {
		t.Fatalf("result %+v calls %v", res, f.calls)
	}

	b, ok := Load(ctx, store, catalog.Diagrams)
	if !ok || len(b) != 1 || b[0].CategoryID != "loan" || len(b[0].Files) != 1 {
		t.Fatalf("bundle: %+v", b)
	}
	file, ok := b.Find("loan", "a.png")
	if !ok {
		t.Fatalf("file not found")
	}
	body, mt, err := DecodeDataURL(file.DataURL)
	if err != nil || mt != "image/png" || len(body) != 3 {
		t.Fatalf("decode: %v %q %v", err, mt, body)
	}

	md, ok := Metadata(ctx, store, catalog.Diagrams)
	if !ok || md.DerivedCount != 1 || md.SizeBytes != 3 {
		t.Fatalf("metadata: %+v", md)
	}
}

func TestDownload_NothingSucceededKeepsCache(t *testing.T) {
	ctx := context.Background()
	store := cache.New(cache.NewMemoryBackend())
	prev := Bundle{{CategoryID: "old", Files: []File{{Filename: "x.png"}}}}
	if err := store.Save(ctx, cache.Diagrams, prev); err != nil {
		t.Fatalf("seed: %v", err)
	}

	d := NewDownloader(&fakeFetcher{}, store, testConfig(), "", nil)
	if _, err := d.Download(ctx, catalog.Diagrams); err != nil {
		t.Fatalf("download: %v", err)
	}
	b, _ := Load(ctx, store, catalog.Diagrams)
	if len(b) != 1 || b[0].CategoryID != "old" {
		t.Fatalf("cached bundle overwritten: %+v", b)
	}
}

func TestDownload_BaseURLOverride(t *testing.T) {
	f := &fakeFetcher{}
	d := NewDownloader(f, cache.New(cache.NewMemoryBackend()), testConfig(), "http://mirror.local", nil)
	_, _ = d.Download(context.Background(), catalog.Diagrams)
	if len(f.calls) == 0 || !strings.HasPrefix(f.calls[0], "http://mirror.local/diagrams/loan/") {
		t.Fatalf("calls: %v", f.calls)
	}
}

func TestDataURL(t *testing.T) {
	if got := DataURL("", []byte("hi")); got != "data:application/octet-stream;base64,aGk=" {
		t.Fatalf("got %q", got)
	}
	if _, _, err := DecodeDataURL("https://x"); err == nil {
		t.Fatalf("expected error")
	}
}
