package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/lawcards/internal/content"
)

type categoriesFile struct {
	Categories []rawCategory `yaml:"categories"`
}

// rawCategory accepts every shape the categories document has used: single
// keys, parallel key lists, or an explicit dataSources list.
type rawCategory struct {
	ID                 string               `yaml:"id"`
	NameLocal          string               `yaml:"nameLocal"`
	NameForeign        string               `yaml:"nameForeign"`
	Icon               string               `yaml:"icon"`
	FetchKey           stringOrList         `yaml:"fetchKey"`
	FilterKey          stringOrList         `yaml:"filterKey"`
	DescriptionPathKey stringOrList         `yaml:"descriptionPathKey"`
	DataSources        []content.DataSource `yaml:"dataSources"`
}

// canonical folds the legacy fields into DataSources. Parallel lists are
// zipped by index; a shorter list leaves the missing keys empty.
func (rc rawCategory) canonical() content.Category {
	cat := content.Category{
		ID:          rc.ID,
		NameLocal:   rc.NameLocal,
		NameForeign: rc.NameForeign,
		Icon:        rc.Icon,
		Questions:   []content.Card{},
	}
	if len(rc.DataSources) > 0 {
		cat.DataSources = append([]content.DataSource(nil), rc.DataSources...)
		return cat
	}
	n := max(len(rc.FetchKey), len(rc.FilterKey), len(rc.DescriptionPathKey))
	for i := 0; i < n; i++ {
		cat.DataSources = append(cat.DataSources, content.DataSource{
			FetchKey:           rc.FetchKey.at(i),
			FilterKey:          rc.FilterKey.at(i),
			DescriptionPathKey: rc.DescriptionPathKey.at(i),
		})
	}
	return cat
}

type stringOrList []string

func (s *stringOrList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" {
			*s = nil
			return nil
		}
		*s = stringOrList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", value.Line)
	}
}

func (s stringOrList) at(i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// AssetKind names a binary asset partition.
type AssetKind string

const (
	Diagrams  AssetKind = "diagrams"
	Documents AssetKind = "documents"
)

type AssetFile struct {
	Filename    string `yaml:"filename" json:"filename"`
	NameLocal   string `yaml:"nameLocal" json:"nameLocal"`
	NameForeign string `yaml:"nameForeign" json:"nameForeign"`
}

// AssetCategory groups the files of one category under a path relative to
// the asset base URL.
type AssetCategory struct {
	CategoryID   string      `yaml:"categoryId" json:"categoryId"`
	CategoryPath string      `yaml:"categoryPath" json:"categoryPath"`
	NameLocal    string      `yaml:"nameLocal" json:"nameLocal"`
	NameForeign  string      `yaml:"nameForeign" json:"nameForeign"`
	Files        []AssetFile `yaml:"files" json:"files"`
}

type AssetConfig struct {
	BaseURL   string          `yaml:"baseUrl"`
	Diagrams  []AssetCategory `yaml:"diagrams"`
	Documents []AssetCategory `yaml:"documents"`
}

func (a AssetConfig) Of(kind AssetKind) []AssetCategory {
	switch kind {
	case Diagrams:
		return a.Diagrams
	case Documents:
		return a.Documents
	}
	return nil
}
