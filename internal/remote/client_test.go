package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/lawcards/internal/content"
)

type fakeCategories map[string]content.Category

func (f fakeCategories) Category(id string) (content.Category, bool) {
	c, ok := f[id]
	return c, ok
}

func newOrigin(t *testing.T, r chi.Router) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCategory_NotConfigured(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.FetchCategory(context.Background(), "anything")
	if !IsNotConfigured(err) {
		t.Fatalf("want NotConfiguredError, got %v", err)
	}
	if IsNetwork(err) {
		t.Fatalf("not configured is not a network error")
	}
}

func TestFetchCategory_Errors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/broken.json", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.Get("/garbage.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	r.Get("/slow.json", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := newOrigin(t, r)
	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	ctx := context.Background()

	_, err := c.FetchCategory(ctx, "broken")
	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusInternalServerError {
		t.Fatalf("want HTTPError 500, got %v", err)
	}

	_, err = c.FetchCategory(ctx, "garbage")
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("want SchemaError, got %v", err)
	}

	_, err = c.FetchCategory(ctx, "slow")
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
	if !IsNetwork(err) {
		t.Fatalf("timeout should count as a network error")
	}
}

func TestFetchCategories_MergesSourcesAndIsolatesFailures(t *testing.T) {
	var hitsA atomic.Int32
	r := chi.NewRouter()
	r.Get("/code_a.json", func(w http.ResponseWriter, _ *http.Request) {
		hitsA.Add(1)
		_, _ = w.Write([]byte(`{"Alpha":[{"id":"SECTION 1","question":"q1","answer":"a1"}],
			"Shared":[{"id":"SECTION 9","question":"q9","answer":"a9"}]}`))
	})
	r.Get("/code_b.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"SECTION 2","title":"T","content":{"paragraphs":[{"id":1,"content":"x","subsections":[{"id":1,"content":"y"}]}]}}]`))
	})
	r.Get("/missing.json", func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	})
	srv := newOrigin(t, r)
	c := New(Config{BaseURL: srv.URL, Markers: content.English}, nil)

	cats := []content.Category{
		{ID: "alpha", NameLocal: "Alpha", DataSources: []content.DataSource{{FetchKey: "code_a"}, {FetchKey: "code_b"}}},
		{ID: "broken", NameLocal: "Broken", DataSources: []content.DataSource{{FetchKey: "code_a"}, {FetchKey: "missing"}}},
		{ID: "shared", NameLocal: "Shared", DataSources: []content.DataSource{{FetchKey: "code_a"}}},
	}
	res := c.FetchCategories(context.Background(), cats)
	if len(res) != 3 {
		t.Fatalf("want 3 results, got %d", len(res))
	}

	alpha := res[0]
	if alpha.Err != nil || alpha.Category.ID != "alpha" {
		t.Fatalf("alpha: %+v", alpha)
	}
	qs := alpha.Category.Questions
	if len(qs) != 3 || qs[0].ID != "SECTION 1" || qs[1].ID != "SECTION 2" || qs[2].ID != "SECTION 2 SUB 1" {
		t.Fatalf("alpha questions: %+v", qs)
	}
	if qs[0].SourceIndex == nil || *qs[0].SourceIndex != 0 || *qs[2].SourceIndex != 1 {
		t.Fatalf("source index not tagged: %+v", qs)
	}
	if len(alpha.Category.DataSources) != 2 {
		t.Fatalf("config metadata lost")
	}

	if res[1].Err == nil || res[1].Category.Questions != nil {
		t.Fatalf("broken category should fail as a whole: %+v", res[1])
	}
	var he *HTTPError
	if !errors.As(res[1].Err, &he) || he.Status != http.StatusNotFound {
		t.Fatalf("want wrapped 404, got %v", res[1].Err)
	}

	shared := res[2]
	if shared.Err != nil || len(shared.Category.Questions) != 1 || shared.Category.Questions[0].SourceIndex != nil {
		t.Fatalf("shared: %+v", shared)
	}
}

func TestFetchCategories_NotConfigured(t *testing.T) {
	res := New(Config{}, nil).FetchCategories(context.Background(), []content.Category{{ID: "a"}})
	if !IsNotConfigured(res[0].Err) {
		t.Fatalf("got %v", res[0].Err)
	}
}

func TestFetchCategories_InvalidRecordIsSchemaError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/bad.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Bad":[{"id":"S 1","title":"t","content":{"paragraphs":[{"id":"1","content":"a"}]}}]}`))
	})
	srv := newOrigin(t, r)
	res := New(Config{BaseURL: srv.URL}, nil).FetchCategories(context.Background(),
		[]content.Category{{ID: "bad", NameLocal: "Bad", DataSources: []content.DataSource{{FetchKey: "bad"}}}})

	var se *SchemaError
	var ve *content.ValidationError
	if !errors.As(res[0].Err, &se) || !errors.As(res[0].Err, &ve) {
		t.Fatalf("want SchemaError wrapping ValidationError, got %v", res[0].Err)
	}
}

func TestFetchAllDescriptions_DedupsByBaseSection(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/desc/code_a/section_7.json", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":"SECTION 7","descriptions":[{"content":"seven"}]}`))
	})
	srv := newOrigin(t, r)
	c := New(Config{
		BaseURL:            srv.URL,
		DescriptionBaseURL: srv.URL + "/desc",
		Markers:            content.English,
		Categories: fakeCategories{
			"cat": {ID: "cat", DataSources: []content.DataSource{{DescriptionPathKey: "code_a"}}},
		},
	}, nil)

	ids := []string{"SECTION 7", "SECTION 7 PARA 1", "SECTION 7 PARA 2"}
	out := c.FetchAllDescriptions(context.Background(), map[string][]string{"cat": ids})
	if n := hits.Load(); n != 1 {
		t.Fatalf("want exactly one fetch, got %d", n)
	}
	if len(out) != 3 {
		t.Fatalf("want 3 entries, got %d", len(out))
	}
	for _, id := range ids {
		if d := out[id]; len(d.Paragraphs) != 1 || d.Paragraphs[0].Text != "seven" {
			t.Fatalf("%s: %+v", id, d)
		}
	}
}

func TestFetchSectionDescription_TriesPathsInOrder(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/first/section_193_27.json", func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	})
	r.Get("/second/section_193_27.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"มาตรา 193/27","descriptions":[{"content":"อายุความ"}]}`))
	})
	srv := newOrigin(t, r)
	c := New(Config{
		DescriptionBaseURL: srv.URL,
		Categories: fakeCategories{"cat": {ID: "cat", DataSources: []content.DataSource{
			{DescriptionPathKey: "first"}, {DescriptionPathKey: "second"},
		}}},
	}, nil)

	d, ok := c.FetchSectionDescription(context.Background(), "cat", "มาตรา 193/27 วรรค 2")
	if !ok || d.SectionID != "มาตรา 193/27" {
		t.Fatalf("got %+v ok=%v", d, ok)
	}
	if _, ok := c.FetchSectionDescription(context.Background(), "cat", "มาตรา 5"); ok {
		t.Fatalf("404 everywhere must be absent")
	}
	if _, ok := c.FetchSectionDescription(context.Background(), "unknown", "มาตรา 5"); ok {
		t.Fatalf("unknown category must be absent")
	}
}

func TestFetchBinary_MediaType(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/diagrams/loan/a.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	srv := newOrigin(t, r)
	c := New(Config{}, nil)

	body, mt, err := c.FetchBinary(context.Background(), AssetURL(srv.URL, "diagrams/loan", "a.png"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if mt != "image/png" || len(body) != 4 {
		t.Fatalf("got %q %d bytes", mt, len(body))
	}
}

func TestDescriptionFile(t *testing.T) {
	if got := DescriptionFile("193/27"); got != "section_193_27.json" {
		t.Fatalf("got %q", got)
	}
}

func TestNestedKeysKeepPathSegments(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/civil/code.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"SECTION 1","question":"q","answer":"a"}]`))
	})
	r.Get("/desc/civil/code/section_1.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"SECTION 1","descriptions":[{"content":"one"}]}`))
	})
	srv := newOrigin(t, r)
	c := New(Config{
		BaseURL:            srv.URL,
		DescriptionBaseURL: srv.URL + "/desc",
		Markers:            content.English,
		Categories: fakeCategories{"cat": {ID: "cat", DataSources: []content.DataSource{
			{DescriptionPathKey: "civil/code"},
		}}},
	}, nil)

	doc, err := c.FetchCategory(context.Background(), "civil/code")
	if err != nil || len(doc[""]) != 1 {
		t.Fatalf("nested fetch key: %v %v", doc, err)
	}
	if _, ok := c.FetchSectionDescription(context.Background(), "cat", "SECTION 1"); !ok {
		t.Fatalf("nested description path not found")
	}
	if got := escapePath("/a b/ค/"); got != "a%20b/%E0%B8%84" {
		t.Fatalf("escapePath: %q", got)
	}
}
