// Package sections lists the in-scope statute sections of each category
// together with their card content and cached descriptions.
package sections

import (
	"context"
	"sort"

	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/content"
)

// MissingContent is the answer shown for an allowed section with no card.
const MissingContent = "เนื้อหายังไม่มีในระบบ"

type Section struct {
	ID           string                         `json:"id"`
	Question     string                         `json:"question"`
	Answer       string                         `json:"answer"`
	Title        string                         `json:"title,omitempty"`
	Descriptions []content.DescriptionParagraph `json:"descriptions,omitempty"`
}

type CategorySections struct {
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	FilterKey    string    `json:"filterKey"`
	Sections     []Section `json:"sections"`
}

type Catalog interface {
	FilterKeys() []string
	LoadFilter(key string) (*content.Filter, bool)
	EffectiveFilter(categoryID string) *content.Filter
}

type Service struct {
	catalog Catalog
	store   *cache.Store
	markers content.Markers
}

func New(c Catalog, store *cache.Store, m content.Markers) *Service {
	return &Service{catalog: c, store: store, markers: m}
}

// All groups sections by filter document. Filters with no allowed ids or
// whose category is not among categories are left out.
func (s *Service) All(ctx context.Context, categories []content.Category) []CategorySections {
	byID := make(map[string]content.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	var descs content.Descriptions
	s.store.Load(ctx, cache.Descriptions, &descs)

	var out []CategorySections
	for _, key := range s.catalog.FilterKeys() {
		f, ok := s.catalog.LoadFilter(key)
		if !ok || len(f.AllowedIDs) == 0 {
			continue
		}
		cat, ok := byID[f.CategoryID]
		if !ok {
			continue
		}
		out = append(out, CategorySections{
			CategoryID:   cat.ID,
			CategoryName: cat.NameLocal,
			FilterKey:    key,
			Sections:     s.build(cat, f.AllowedIDs, descs),
		})
	}
	return out
}

func (s *Service) build(cat content.Category, ids []string, descs content.Descriptions) []Section {
	cards := make(map[string]content.Card, len(cat.Questions))
	for _, c := range cat.Questions {
		if _, dup := cards[c.ID]; !dup {
			cards[c.ID] = c
		}
	}
	out := make([]Section, 0, len(ids))
	for _, id := range s.sortIDs(ids) {
		sec := Section{ID: id, Question: id, Answer: MissingContent}
		if c, ok := cards[id]; ok {
			sec.Question, sec.Answer, sec.Title = c.Question, c.Answer, c.Title
		}
		if d, ok := descs[id]; ok {
			sec.Descriptions = d.Paragraphs
		}
		out = append(out, sec)
	}
	return out
}

// CategorySections returns the allowed ids of a category ordered by section
// number. An unrestricted or unknown category yields nothing.
func (s *Service) CategorySections(categoryID string) []string {
	f := s.catalog.EffectiveFilter(categoryID)
	if f == nil {
		return nil
	}
	return s.sortIDs(f.AllowedIDs)
}

// TotalCount sums allowed ids over every registered filter.
func (s *Service) TotalCount() int {
	n := 0
	for _, key := range s.catalog.FilterKeys() {
		if f, ok := s.catalog.LoadFilter(key); ok {
			n += len(f.AllowedIDs)
		}
	}
	return n
}

func (s *Service) sortIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		return s.markers.SectionNumber(out[i]) < s.markers.SectionNumber(out[j])
	})
	return out
}
