package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/lawcards/internal/content"
)

const descriptionFanout = 8

// DescriptionFile maps a base section number to its file name:
// "656" -> "section_656.json", "193/27" -> "section_193_27.json".
func DescriptionFile(base string) string {
	return "section_" + strings.ReplaceAll(base, "/", "_") + ".json"
}

func (c *Client) descriptionPaths(categoryID string) []string {
	if c.categories == nil {
		return nil
	}
	cat, ok := c.categories.Category(categoryID)
	if !ok {
		return nil
	}
	var paths []string
	seen := map[string]bool{}
	for _, ds := range cat.DataSources {
		if ds.DescriptionPathKey == "" || seen[ds.DescriptionPathKey] {
			continue
		}
		seen[ds.DescriptionPathKey] = true
		paths = append(paths, ds.DescriptionPathKey)
	}
	return paths
}

// FetchSectionDescription returns the description for sectionID, trying each
// description path of the category in order. Missing descriptions are
// expected: 404s and transport failures both report ok=false.
func (c *Client) FetchSectionDescription(ctx context.Context, categoryID, sectionID string) (content.Description, bool) {
	base, ok := c.markers.BaseSection(sectionID)
	if !ok {
		c.log.Debug("unparseable section id", "category", categoryID, "section", sectionID)
		return content.Description{}, false
	}
	return c.fetchDescription(ctx, c.descriptionPaths(categoryID), base)
}

func (c *Client) fetchDescription(ctx context.Context, paths []string, base string) (content.Description, bool) {
	if c.descBaseURL == "" {
		return content.Description{}, false
	}
	for _, p := range paths {
		u := c.descBaseURL + "/" + escapePath(p) + "/" + DescriptionFile(base)
		body, _, err := c.get(ctx, u)
		if err != nil {
			var he *HTTPError
			if !errors.As(err, &he) || he.Status != http.StatusNotFound {
				c.log.Warn("description fetch failed", "url", u, "error", err)
			}
			continue
		}
		var d content.Description
		if err := json.Unmarshal(body, &d); err != nil {
			c.log.Warn("description payload invalid", "url", u, "error", err)
			continue
		}
		return d, true
	}
	return content.Description{}, false
}

// FetchAllDescriptions fetches descriptions for every requested section id,
// keyed by category id. Requests are deduplicated by base section number
// within the same description paths, and each result is fanned out to every
// section id that shares it.
func (c *Client) FetchAllDescriptions(ctx context.Context, sectionsByCategory map[string][]string) content.Descriptions {
	type job struct {
		paths []string
		base  string
	}
	jobs := map[string]*job{}
	wanted := map[string][]string{} // job key -> section ids
	var order []string

	for categoryID, ids := range sectionsByCategory {
		paths := c.descriptionPaths(categoryID)
		if len(paths) == 0 {
			continue
		}
		for _, id := range ids {
			base, ok := c.markers.BaseSection(id)
			if !ok {
				continue
			}
			key := strings.Join(paths, "|") + "#" + base
			if _, ok := jobs[key]; !ok {
				jobs[key] = &job{paths: paths, base: base}
				order = append(order, key)
			}
			wanted[key] = append(wanted[key], id)
		}
	}

	var (
		mu  sync.Mutex
		out = content.Descriptions{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(descriptionFanout)
	for _, key := range order {
		key, j := key, jobs[key]
		g.Go(func() error {
			d, ok := c.fetchDescription(gctx, j.paths, j.base)
			if !ok {
				return nil
			}
			mu.Lock()
			for _, id := range wanted[key] {
				out[id] = d
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
