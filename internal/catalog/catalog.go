package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/logger"
)

//go:embed data/categories.yaml
var categoriesYAML []byte

//go:embed data/assets.yaml
var assetsYAML []byte

//go:embed data/filters
var filtersFS embed.FS

// Catalog is the bundled category configuration plus the filter registry.
// It is the static fallback used when the remote origin cannot serve content.
type Catalog struct {
	categories []content.Category
	byID       map[string]int
	filters    map[string]content.Filter
	assets     AssetConfig
	log        *logger.Logger

	mu        sync.Mutex
	effective map[string]*content.Filter
}

// Load builds the catalog from the embedded configuration.
func Load(log *logger.Logger) (*Catalog, error) {
	sub, err := fs.Sub(filtersFS, "data/filters")
	if err != nil {
		return nil, err
	}
	return New(categoriesYAML, assetsYAML, sub, log)
}

// New builds a catalog from a categories document, an assets document and a
// tree of filter JSON files. Filters are registered under their path without
// the ".json" extension, e.g. "civil/loan".
func New(categoriesDoc, assetsDoc []byte, filters fs.FS, log *logger.Logger) (*Catalog, error) {
	c := &Catalog{
		byID:      map[string]int{},
		filters:   map[string]content.Filter{},
		effective: map[string]*content.Filter{},
		log:       logger.OrNop(log),
	}

	var doc categoriesFile
	if err := yaml.Unmarshal(categoriesDoc, &doc); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	for i, rc := range doc.Categories {
		if strings.TrimSpace(rc.ID) == "" {
			return nil, fmt.Errorf("categories[%d]: empty id", i)
		}
		if _, dup := c.byID[rc.ID]; dup {
			return nil, fmt.Errorf("categories[%d]: duplicate id %q", i, rc.ID)
		}
		c.byID[rc.ID] = len(c.categories)
		c.categories = append(c.categories, rc.canonical())
	}

	if len(assetsDoc) > 0 {
		if err := yaml.Unmarshal(assetsDoc, &c.assets); err != nil {
			return nil, fmt.Errorf("parse assets: %w", err)
		}
	}

	if filters != nil {
		err := fs.WalkDir(filters, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || path.Ext(p) != ".json" {
				return err
			}
			b, err := fs.ReadFile(filters, p)
			if err != nil {
				return err
			}
			var f content.Filter
			if err := json.Unmarshal(b, &f); err != nil {
				return fmt.Errorf("filter %s: %w", p, err)
			}
			c.filters[strings.TrimSuffix(p, ".json")] = f
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Categories returns a copy of the bundled categories. Questions are empty
// until a sync fills them.
func (c *Catalog) Categories() []content.Category {
	out := make([]content.Category, len(c.categories))
	for i, cat := range c.categories {
		cat.DataSources = append([]content.DataSource(nil), cat.DataSources...)
		out[i] = cat
	}
	return out
}

func (c *Catalog) Category(id string) (content.Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return content.Category{}, false
	}
	cat := c.categories[i]
	cat.DataSources = append([]content.DataSource(nil), cat.DataSources...)
	return cat, true
}

// LoadFilter looks up a registered filter document by key.
func (c *Catalog) LoadFilter(filterKey string) (*content.Filter, bool) {
	f, ok := c.filters[filterKey]
	if !ok {
		return nil, false
	}
	f.AllowedIDs = append([]string(nil), f.AllowedIDs...)
	return &f, true
}

// FilterKeys lists registered filter keys in category order, then any
// registered filter no category references.
func (c *Catalog) FilterKeys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, cat := range c.categories {
		for _, ds := range cat.DataSources {
			if ds.FilterKey == "" || seen[ds.FilterKey] {
				continue
			}
			if _, ok := c.filters[ds.FilterKey]; ok {
				seen[ds.FilterKey] = true
				keys = append(keys, ds.FilterKey)
			}
		}
	}
	var rest []string
	for k := range c.filters {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// EffectiveFilter returns the union of the filters declared by the
// category's data sources. nil means the category is unrestricted.
// Results are memoized until ClearFilterCache.
func (c *Catalog) EffectiveFilter(categoryID string) *content.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.effective[categoryID]; ok {
		return f
	}

	var parts []content.Filter
	if cat, ok := c.Category(categoryID); ok {
		for _, ds := range cat.DataSources {
			if ds.FilterKey == "" {
				continue
			}
			f, ok := c.LoadFilter(ds.FilterKey)
			if !ok {
				c.log.Warn("filter not registered", "category", categoryID, "filterKey", ds.FilterKey)
				continue
			}
			parts = append(parts, *f)
		}
	}

	var eff *content.Filter
	if len(parts) > 0 {
		u := content.UnionFilters(categoryID, parts...)
		eff = &u
	}
	c.effective[categoryID] = eff
	return eff
}

// FilterCards keeps the cards allowed for the category.
func (c *Catalog) FilterCards(categoryID string, cards []content.Card) []content.Card {
	return content.ApplyFilter(c.EffectiveFilter(categoryID), cards)
}

// IsAllowed reports whether a card id is in scope for the category.
func (c *Catalog) IsAllowed(categoryID, cardID string) bool {
	return c.EffectiveFilter(categoryID).Allows(cardID)
}

// ClearFilterCache drops memoized effective filters.
func (c *Catalog) ClearFilterCache() {
	c.mu.Lock()
	c.effective = map[string]*content.Filter{}
	c.mu.Unlock()
}

// Assets returns the bundled binary asset listing.
func (c *Catalog) Assets() AssetConfig {
	return c.assets
}
