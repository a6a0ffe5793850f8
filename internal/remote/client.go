package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/logger"
)

const DefaultTimeout = 10 * time.Second

// CategoryLookup resolves a category's data sources. The catalog satisfies it.
type CategoryLookup interface {
	Category(id string) (content.Category, bool)
}

type Config struct {
	BaseURL            string
	DescriptionBaseURL string
	Timeout            time.Duration
	Markers            content.Markers
	Categories         CategoryLookup
	HTTPClient         *http.Client
}

// Client fetches question sets, descriptions and binary assets from the
// content origin.
type Client struct {
	baseURL     string
	descBaseURL string
	timeout     time.Duration
	markers     content.Markers
	categories  CategoryLookup
	http        *http.Client
	normalizer  *content.Normalizer
	log         *logger.Logger

	docs singleflight.Group
}

func New(cfg Config, log *logger.Logger) *Client {
	h := cfg.HTTPClient
	if h == nil {
		h = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Markers == (content.Markers{}) {
		cfg.Markers = content.DefaultMarkers
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		descBaseURL: strings.TrimSuffix(cfg.DescriptionBaseURL, "/"),
		timeout:     cfg.Timeout,
		markers:     cfg.Markers,
		categories:  cfg.Categories,
		http:        h,
		normalizer:  content.NewNormalizer(cfg.Markers),
		log:         logger.OrNop(log),
	}
}

// Configured reports whether a content origin is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

// RawDocument is a fetched question set keyed by category display name.
// A document whose top level is an array is stored under the empty key.
type RawDocument map[string][]json.RawMessage

// FetchCategory downloads {base}/{fetchKey}.json.
func (c *Client) FetchCategory(ctx context.Context, fetchKey string) (RawDocument, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	u := c.baseURL + "/" + escapePath(fetchKey) + ".json"
	body, _, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return decodeDocument(u, body)
}

func decodeDocument(u string, body []byte) (RawDocument, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, &SchemaError{URL: u, Err: err}
		}
		return RawDocument{"": list}, nil
	}
	var doc RawDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &SchemaError{URL: u, Err: err}
	}
	if doc == nil {
		return nil, &SchemaError{URL: u, Err: errors.New("empty document")}
	}
	return doc, nil
}

// CategoryResult is the outcome of fetching one category. Exactly one of
// Category.Questions or Err is meaningful.
type CategoryResult struct {
	Category content.Category
	Err      error
}

// FetchCategories fetches every category concurrently. Results are in
// request order. A category with several data sources gets the concatenation
// of their questions, each card tagged with its SourceIndex; an error in any
// source fails that category only.
func (c *Client) FetchCategories(ctx context.Context, cats []content.Category) []CategoryResult {
	results := make([]CategoryResult, len(cats))
	if c.baseURL == "" {
		for i, cat := range cats {
			results[i] = CategoryResult{Category: cat, Err: ErrNotConfigured}
		}
		return results
	}

	var g errgroup.Group
	for i, cat := range cats {
		i, cat := i, cat
		g.Go(func() error {
			merged, err := c.fetchMerged(ctx, cat)
			results[i] = CategoryResult{Category: merged, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Client) fetchMerged(ctx context.Context, cat content.Category) (content.Category, error) {
	sources := cat.DataSources
	if len(sources) == 0 {
		return cat, fmt.Errorf("category %q: no data sources", cat.ID)
	}
	perSource := make([][]content.Card, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range sources {
		i, ds := i, ds
		g.Go(func() error {
			cards, err := c.fetchSource(gctx, cat, ds)
			if err != nil {
				return fmt.Errorf("category %q source %q: %w", cat.ID, ds.FetchKey, err)
			}
			if len(sources) > 1 {
				for j := range cards {
					idx := i
					cards[j].SourceIndex = &idx
				}
			}
			perSource[i] = cards
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cat, err
	}

	out := cat
	out.Questions = []content.Card{}
	for _, cards := range perSource {
		out.Questions = append(out.Questions, cards...)
	}
	if dups := content.DuplicateIDs(out.Questions); len(dups) > 0 {
		c.log.Warn("duplicate card ids across data sources", "category", cat.ID, "ids", dups)
	}
	return out, nil
}

func (c *Client) fetchSource(ctx context.Context, cat content.Category, ds content.DataSource) ([]content.Card, error) {
	// Several categories may share one fetch key; fetch it once. The shared
	// request must not be cancelled when one waiting category fails.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.docs.Do(ds.FetchKey, func() (any, error) {
		return c.FetchCategory(shared, ds.FetchKey)
	})
	if err != nil {
		return nil, err
	}
	doc := v.(RawDocument)

	raws, ok := pickQuestionSet(doc, ds.NameLocal, cat.NameLocal, cat.ID)
	if !ok {
		return nil, &SchemaError{URL: ds.FetchKey, Err: fmt.Errorf("no question set for %q", cat.NameLocal)}
	}
	cards, err := c.normalizer.NormalizeAll(raws)
	if err != nil {
		return nil, &SchemaError{URL: ds.FetchKey, Err: err}
	}
	return cards, nil
}

func pickQuestionSet(doc RawDocument, names ...string) ([]json.RawMessage, bool) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if raws, ok := doc[n]; ok {
			return raws, true
		}
	}
	if len(doc) == 1 {
		for _, raws := range doc {
			return raws, true
		}
	}
	return nil, false
}

// get performs a bounded GET and returns the body and content type.
func (c *Client) get(ctx context.Context, u string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", &TimeoutError{URL: u}
		}
		return nil, "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, "", &HTTPError{Status: res.StatusCode, URL: u}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", &TimeoutError{URL: u}
		}
		return nil, "", err
	}
	return body, res.Header.Get("Content-Type"), nil
}
