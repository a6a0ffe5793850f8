package content

// DataSource is one paired (fetch, filter, description) source of a category.
type DataSource struct {
	FetchKey           string `json:"fetchKey" yaml:"fetchKey"`
	FilterKey          string `json:"filterKey,omitempty" yaml:"filterKey"`
	DescriptionPathKey string `json:"descriptionPathKey,omitempty" yaml:"descriptionPathKey"`
	NameLocal          string `json:"nameLocal,omitempty" yaml:"nameLocal"`
	NameForeign        string `json:"nameForeign,omitempty" yaml:"nameForeign"`
}

type Category struct {
	ID          string       `json:"id"`
	NameLocal   string       `json:"nameLocal"`
	NameForeign string       `json:"nameForeign"`
	Icon        string       `json:"icon"`
	Questions   []Card       `json:"questions"`
	DataSources []DataSource `json:"dataSources,omitempty"`
}

// Card is the canonical flat question/answer unit.
type Card struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Title    string `json:"title,omitempty"` // whole-section cards only
	// SourceIndex is the position of the data source that produced the card
	// in a multi-source category.
	SourceIndex *int `json:"sourceIndex,omitempty"`
}

type DescriptionParagraph struct {
	Text string `json:"content"`
}

type Description struct {
	SectionID  string                 `json:"id"`
	Paragraphs []DescriptionParagraph `json:"descriptions"`
}

// Descriptions maps a card/section id to its description.
type Descriptions map[string]Description

type Filter struct {
	CategoryID string   `json:"categoryId"`
	AllowedIDs []string `json:"allowedQuestionIds"`
}

// Allows reports whether id is in scope. A nil filter allows everything.
func (f *Filter) Allows(id string) bool {
	if f == nil {
		return true
	}
	for _, a := range f.AllowedIDs {
		if a == id {
			return true
		}
	}
	return false
}

// TotalQuestions counts cards across categories.
func TotalQuestions(cats []Category) int {
	n := 0
	for _, c := range cats {
		n += len(c.Questions)
	}
	return n
}

// DuplicateIDs returns card ids that occur more than once, in first-seen order.
func DuplicateIDs(cards []Card) []string {
	seen := make(map[string]int, len(cards))
	var dups []string
	for _, c := range cards {
		seen[c.ID]++
		if seen[c.ID] == 2 {
			dups = append(dups, c.ID)
		}
	}
	return dups
}
