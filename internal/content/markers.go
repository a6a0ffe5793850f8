package content

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Markers are the words used in card ids for the three levels of a legal text.
type Markers struct {
	Section    string
	Paragraph  string
	Subsection string
}

var (
	Thai    = Markers{Section: "มาตรา", Paragraph: "วรรค", Subsection: "อนุ"}
	English = Markers{Section: "SECTION", Paragraph: "PARA", Subsection: "SUB"}

	DefaultMarkers = Thai
)

// Ref is a parsed card id.
type Ref struct {
	Section    int
	Paragraph  *int
	Subsection *string
}

type markerRegexps struct {
	section    *regexp.Regexp
	base       *regexp.Regexp
	paragraph  *regexp.Regexp
	subsection *regexp.Regexp
}

var compiled sync.Map // Markers -> *markerRegexps

func (m Markers) regexps() *markerRegexps {
	if v, ok := compiled.Load(m); ok {
		return v.(*markerRegexps)
	}
	rx := &markerRegexps{
		// section keeps only the leading digits, so "193/27" reads as 193 and
		// shares its label with section 193. base keeps the "/27" suffix.
		section:    regexp.MustCompile(regexp.QuoteMeta(m.Section) + `\s+(\d+)`),
		base:       regexp.MustCompile(regexp.QuoteMeta(m.Section) + `\s+(\d+(?:/\d+)?)`),
		paragraph:  regexp.MustCompile(regexp.QuoteMeta(m.Paragraph) + `\s+(\d+)`),
		subsection: regexp.MustCompile(regexp.QuoteMeta(m.Subsection) + `\s+(\S+)`),
	}
	v, _ := compiled.LoadOrStore(m, rx)
	return v.(*markerRegexps)
}

// Parse extracts the section, paragraph and subsection of a card id.
// ok is false when the id carries no section number.
func (m Markers) Parse(id string) (Ref, bool) {
	rx := m.regexps()
	sm := rx.section.FindStringSubmatch(id)
	if sm == nil {
		return Ref{}, false
	}
	sec, err := strconv.Atoi(sm[1])
	if err != nil {
		return Ref{}, false
	}
	ref := Ref{Section: sec}
	if pm := rx.paragraph.FindStringSubmatch(id); pm != nil {
		if p, err := strconv.Atoi(pm[1]); err == nil {
			ref.Paragraph = &p
		}
	}
	if ssm := rx.subsection.FindStringSubmatch(id); ssm != nil {
		s := strings.TrimSpace(ssm[1])
		ref.Subsection = &s
	}
	return ref, true
}

// SectionNumber returns the leading section number of id, or 0.
func (m Markers) SectionNumber(id string) int {
	sm := m.regexps().section.FindStringSubmatch(id)
	if sm == nil {
		return 0
	}
	n, _ := strconv.Atoi(sm[1])
	return n
}

// BaseSection returns the base section number of id, e.g. "656" or "193/27".
// Paragraph and subsection parts are dropped.
func (m Markers) BaseSection(id string) (string, bool) {
	sm := m.regexps().base.FindStringSubmatch(id)
	if sm == nil {
		return "", false
	}
	return sm[1], true
}

// SectionLabel renders "<Section> n".
func (m Markers) SectionLabel(n int) string {
	return m.Section + " " + strconv.Itoa(n)
}

// StripSection removes a leading "<Section> " prefix.
func (m Markers) StripSection(id string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(id), m.Section+" "))
}
