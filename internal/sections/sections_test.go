package sections

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/content"
)

type fakeCatalog struct {
	keys    []string
	filters map[string]content.Filter
}

func (f *fakeCatalog) FilterKeys() []string { return f.keys }

func (f *fakeCatalog) LoadFilter(key string) (*content.Filter, bool) {
	flt, ok := f.filters[key]
	if !ok {
		return nil, false
	}
	return &flt, true
}

func (f *fakeCatalog) EffectiveFilter(categoryID string) *content.Filter {
	var matched []content.Filter
	for _, k := range f.keys {
		if flt := f.filters[k]; flt.CategoryID == categoryID {
			matched = append(matched, flt)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	u := content.UnionFilters(categoryID, matched...)
	return &u
}

func newFixture(t *testing.T) (*Service, []content.Category) {
	t.Helper()
	cat := &fakeCatalog{
		keys: []string{"loan", "empty", "orphan", "loan-extra"},
		filters: map[string]content.Filter{
			"loan":       {CategoryID: "loan", AllowedIDs: []string{"มาตรา 656", "มาตรา 10", "มาตรา 650 วรรค 2"}},
			"empty":      {CategoryID: "loan"},
			"orphan":     {CategoryID: "missing", AllowedIDs: []string{"มาตรา 1"}},
			"loan-extra": {CategoryID: "loan", AllowedIDs: []string{"มาตรา 2"}},
		},
	}
	store := cache.New(cache.NewMemoryBackend())
	descs := content.Descriptions{
		"มาตรา 656": {SectionID: "มาตรา 656", Paragraphs: []content.DescriptionParagraph{{Text: "คำอธิบาย"}}},
	}
	if err := store.Save(context.Background(), cache.Descriptions, descs); err != nil {
		t.Fatalf("save descriptions: %v", err)
	}
	cats := []content.Category{{
		ID:        "loan",
		NameLocal: "ยืม",
		Questions: []content.Card{
			{ID: "มาตรา 656", Question: "มาตรา 656", Answer: "ข้อความ 656", Title: "ยืมใช้สิ้นเปลือง"},
			{ID: "มาตรา 10", Question: "มาตรา 10", Answer: "ข้อความ 10"},
		},
	}}
	return New(cat, store, content.Thai), cats
}

func TestAll(t *testing.T) {
	svc, cats := newFixture(t)
	groups := svc.All(context.Background(), cats)
	if len(groups) != 2 {
		t.Fatalf("want loan and loan-extra groups, got %+v", groups)
	}
	g := groups[0]
	if g.FilterKey != "loan" || g.CategoryName != "ยืม" {
		t.Fatalf("group: %+v", g)
	}
	var ids []string
	for _, s := range g.Sections {
		ids = append(ids, s.ID)
	}
	if strings.Join(ids, ",") != "มาตรา 10,มาตรา 650 วรรค 2,มาตรา 656" {
		t.Fatalf("order: %v", ids)
	}
	if g.Sections[1].Answer != MissingContent {
		t.Fatalf("missing card answer: %q", g.Sections[1].Answer)
	}
	last := g.Sections[2]
	if last.Title != "ยืมใช้สิ้นเปลือง" || len(last.Descriptions) != 1 || last.Descriptions[0].Text != "คำอธิบาย" {
		t.Fatalf("section 656: %+v", last)
	}
	if groups[1].Sections[0].Answer != MissingContent {
		t.Fatalf("extra: %+v", groups[1])
	}
}

func TestAll_NoCachedDescriptions(t *testing.T) {
	cat := &fakeCatalog{
		keys:    []string{"a"},
		filters: map[string]content.Filter{"a": {CategoryID: "a", AllowedIDs: []string{"มาตรา 1"}}},
	}
	svc := New(cat, cache.New(cache.NewMemoryBackend()), content.Thai)
	groups := svc.All(context.Background(), []content.Category{{ID: "a"}})
	if len(groups) != 1 || groups[0].Sections[0].Descriptions != nil {
		t.Fatalf("got %+v", groups)
	}
}

func TestCategorySections(t *testing.T) {
	svc, _ := newFixture(t)
	got := svc.CategorySections("loan")
	if strings.Join(got, ",") != "มาตรา 2,มาตรา 10,มาตรา 650 วรรค 2,มาตรา 656" {
		t.Fatalf("got %v", got)
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool {
		return content.Thai.SectionNumber(got[i]) < content.Thai.SectionNumber(got[j])
	}) {
		t.Fatalf("not sorted: %v", got)
	}
	if got := svc.CategorySections("nope"); got != nil {
		t.Fatalf("unknown category: %v", got)
	}
}

func TestTotalCount(t *testing.T) {
	svc, _ := newFixture(t)
	if n := svc.TotalCount(); n != 5 {
		t.Fatalf("total %d", n)
	}
}
