package content

// UnionFilters merges the allow-lists of several filters for one category,
// keeping first-seen order and dropping duplicates.
func UnionFilters(categoryID string, filters ...Filter) Filter {
	seen := make(map[string]struct{})
	out := Filter{CategoryID: categoryID, AllowedIDs: []string{}}
	for _, f := range filters {
		for _, id := range f.AllowedIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out.AllowedIDs = append(out.AllowedIDs, id)
		}
	}
	return out
}

// ApplyFilter keeps the cards allowed by f. A nil filter keeps everything.
func ApplyFilter(f *Filter, cards []Card) []Card {
	if f == nil {
		return cards
	}
	allowed := make(map[string]struct{}, len(f.AllowedIDs))
	for _, id := range f.AllowedIDs {
		allowed[id] = struct{}{}
	}
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if _, ok := allowed[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}
