package quiz

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/mind-engage/lawcards/internal/content"
)

const (
	DefaultCount = 20
	choiceCount  = 4

	weightSection    = 1.5
	weightParagraph  = 1.2
	weightSubsection = 1.0

	maxSynthAttempts = 50
)

type Kind string

const (
	KindSection    Kind = "section"
	KindParagraph  Kind = "paragraph"
	KindSubsection Kind = "subsection"
)

// Item is one multiple-choice question. Choices always holds four distinct
// strings, one of which is CorrectAnswer.
type Item struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"question"`
	CorrectAnswer string   `json:"correctAnswer"`
	Choices       []string `json:"choices"`
	Kind          Kind     `json:"type"`
}

// Generator derives quiz items from cards. The zero value is not usable;
// build one with New.
type Generator struct {
	markers content.Markers
	rnd     *rand.Rand
}

// New returns a generator. A nil rnd uses a randomly seeded source.
func New(m content.Markers, rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{markers: m, rnd: rnd}
}

type parsedCard struct {
	card content.Card
	ref  content.Ref
}

func (p parsedCard) kind() Kind {
	switch {
	case p.ref.Subsection != nil:
		return KindSubsection
	case p.ref.Paragraph != nil:
		return KindParagraph
	}
	return KindSection
}

func (p parsedCard) weight() float64 {
	switch p.kind() {
	case KindSubsection:
		return weightSubsection
	case KindParagraph:
		return weightParagraph
	}
	return weightSection
}

// Generate samples up to count cards (DefaultCount when count <= 0),
// favoring whole sections over paragraphs over subsections, and builds one
// item per sampled card. Cards whose id has no section number are skipped,
// as are cards for which four distinct choices cannot be built.
func (g *Generator) Generate(cards []content.Card, count int) []Item {
	if count <= 0 {
		count = DefaultCount
	}
	var parsed []parsedCard
	for _, c := range cards {
		if ref, ok := g.markers.Parse(c.ID); ok {
			parsed = append(parsed, parsedCard{card: c, ref: ref})
		}
	}
	if len(parsed) == 0 {
		return nil
	}

	sections := uniqueSections(parsed)
	items := make([]Item, 0, min(count, len(parsed)))
	s := g.newSampler(parsed)
	for len(items) < count {
		p, ok := s.next()
		if !ok {
			break
		}
		item, ok := g.item(p, parsed, sections)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

// sampler draws cards without replacement by cumulative-weight roulette
// selection, one at a time.
type sampler struct {
	rnd       *rand.Rand
	remaining []parsedCard
	total     float64
}

func (g *Generator) newSampler(pool []parsedCard) *sampler {
	s := &sampler{rnd: g.rnd, remaining: append([]parsedCard(nil), pool...)}
	for _, p := range pool {
		s.total += p.weight()
	}
	return s
}

func (s *sampler) next() (parsedCard, bool) {
	if len(s.remaining) == 0 {
		return parsedCard{}, false
	}
	r := s.rnd.Float64() * s.total
	idx := len(s.remaining) - 1
	cum := 0.0
	for i, p := range s.remaining {
		cum += p.weight()
		if r < cum {
			idx = i
			break
		}
	}
	p := s.remaining[idx]
	s.remaining = append(s.remaining[:idx], s.remaining[idx+1:]...)
	s.total -= p.weight()
	return p, true
}

// weightedSample draws up to n items.
func (g *Generator) weightedSample(pool []parsedCard, n int) []parsedCard {
	s := g.newSampler(pool)
	out := make([]parsedCard, 0, min(n, len(pool)))
	for len(out) < n {
		p, ok := s.next()
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// Answer returns the correct choice label for a card id, as used in Items.
func (g *Generator) Answer(id string) (string, bool) {
	ref, ok := g.markers.Parse(id)
	if !ok {
		return "", false
	}
	switch {
	case ref.Subsection != nil:
		return g.subsectionLabel(ref.Section, ref.Paragraph, *ref.Subsection), true
	case ref.Paragraph != nil:
		return g.paragraphLabel(ref.Section, *ref.Paragraph), true
	}
	return g.markers.SectionLabel(ref.Section), true
}

func (g *Generator) item(p parsedCard, all []parsedCard, sections []int) (Item, bool) {
	var correct string
	var choices []string
	ref := p.ref

	switch p.kind() {
	case KindSubsection:
		correct = g.subsectionLabel(ref.Section, ref.Paragraph, *ref.Subsection)
		choices = g.subsectionChoices(ref, all, sections)
	case KindParagraph:
		correct = g.paragraphLabel(ref.Section, *ref.Paragraph)
		choices = g.paragraphChoices(ref, all, sections)
	default:
		correct = g.markers.SectionLabel(ref.Section)
		choices = g.sectionChoices(ref.Section, sections)
	}
	if len(choices) != choiceCount || !distinct(choices) {
		return Item{}, false
	}
	g.shuffle(choices)
	return Item{
		ID:            p.card.ID,
		Prompt:        g.prompt(p.card),
		CorrectAnswer: correct,
		Choices:       choices,
		Kind:          p.kind(),
	}, true
}

func (g *Generator) sectionChoices(target int, sections []int) []string {
	choices := []string{g.markers.SectionLabel(target)}
	for _, s := range nearestSections(target, sections) {
		if len(choices) == choiceCount {
			break
		}
		choices = append(choices, g.markers.SectionLabel(s))
	}
	if len(choices) < choiceCount {
		taken := map[string]bool{}
		for _, c := range choices {
			taken[c] = true
		}
		for _, n := range g.synthesize(float64(target), choiceCount-len(choices), taken) {
			choices = append(choices, g.markers.SectionLabel(n))
		}
	}
	return choices
}

func (g *Generator) paragraphChoices(ref content.Ref, all []parsedCard, sections []int) []string {
	target := *ref.Paragraph
	choices := []string{g.paragraphLabel(ref.Section, target)}

	seen := map[int]bool{target: true}
	var siblings []int
	for _, p := range all {
		if p.ref.Section != ref.Section || p.ref.Paragraph == nil || p.ref.Subsection != nil {
			continue
		}
		if n := *p.ref.Paragraph; !seen[n] {
			seen[n] = true
			siblings = append(siblings, n)
		}
	}
	sort.Ints(siblings)
	for _, n := range siblings {
		if len(choices) == choiceCount {
			break
		}
		choices = append(choices, g.paragraphLabel(ref.Section, n))
	}
	for _, s := range nearestSections(ref.Section, sections) {
		if len(choices) == choiceCount {
			break
		}
		choices = append(choices, g.markers.SectionLabel(s))
	}
	return choices
}

func (g *Generator) subsectionChoices(ref content.Ref, all []parsedCard, sections []int) []string {
	target := *ref.Subsection
	choices := []string{g.subsectionLabel(ref.Section, ref.Paragraph, target)}

	seen := map[string]bool{target: true}
	var siblings []string
	for _, p := range all {
		if p.ref.Section != ref.Section || p.ref.Subsection == nil || !sameParagraph(p.ref.Paragraph, ref.Paragraph) {
			continue
		}
		if s := *p.ref.Subsection; !seen[s] {
			seen[s] = true
			siblings = append(siblings, s)
		}
	}

	targetNum, numErr := strconv.ParseFloat(target, 64)
	sort.SliceStable(siblings, func(i, j int) bool {
		a, errA := strconv.ParseFloat(siblings[i], 64)
		b, errB := strconv.ParseFloat(siblings[j], 64)
		if errA == nil && errB == nil {
			if numErr == nil {
				return math.Abs(a-targetNum) < math.Abs(b-targetNum)
			}
			return a < b
		}
		return siblings[i] < siblings[j]
	})

	if len(siblings) < choiceCount-1 && numErr == nil {
		for _, n := range g.synthesize(targetNum, choiceCount-1-len(siblings), seen) {
			siblings = append(siblings, strconv.Itoa(n))
		}
	}
	for _, s := range siblings {
		if len(choices) == choiceCount {
			break
		}
		choices = append(choices, g.subsectionLabel(ref.Section, ref.Paragraph, s))
	}
	// Non-numeric subsection ids with few siblings fall back to sections.
	for _, s := range nearestSections(ref.Section, sections) {
		if len(choices) == choiceCount {
			break
		}
		choices = append(choices, g.markers.SectionLabel(s))
	}
	return choices
}

// synthesize makes up to want positive integers near target that are not in
// taken, giving up after maxSynthAttempts draws. taken is updated.
func (g *Generator) synthesize(target float64, want int, taken map[string]bool) []int {
	var out []int
	for attempt := 0; attempt < maxSynthAttempts && len(out) < want; attempt++ {
		offset := float64(g.rnd.IntN(10) + 1)
		if g.rnd.Float64() <= 0.5 {
			offset = -offset
		}
		cand := target + offset
		n := int(math.Round(cand))
		key := strconv.Itoa(n)
		if cand <= 0 || n <= 0 || taken[key] || taken[g.markers.SectionLabel(n)] {
			continue
		}
		taken[key] = true
		taken[g.markers.SectionLabel(n)] = true
		out = append(out, n)
	}
	return out
}

// prompt strips the header line, blank lines and a leading paragraph marker
// from the card's answer.
func (g *Generator) prompt(c content.Card) string {
	lines := strings.Split(c.Answer, "\n")
	var kept []string
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	text := strings.TrimSpace(strings.Join(kept, "\n"))
	if rest, ok := strings.CutPrefix(text, g.markers.Paragraph); ok {
		rest = strings.TrimLeft(rest, " \t")
		digits := len(rest) - len(strings.TrimLeft(rest, "0123456789"))
		if digits > 0 {
			text = strings.TrimSpace(rest[digits:])
		}
	}
	return text
}

// shuffle is an in-place Fisher-Yates shuffle.
func (g *Generator) shuffle(s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := g.rnd.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func (g *Generator) paragraphLabel(section, paragraph int) string {
	return g.markers.SectionLabel(section) + " " + g.markers.Paragraph + " " + strconv.Itoa(paragraph)
}

func (g *Generator) subsectionLabel(section int, paragraph *int, sub string) string {
	label := g.markers.SectionLabel(section)
	if paragraph != nil {
		label += " " + g.markers.Paragraph + " " + strconv.Itoa(*paragraph)
	}
	return label + " " + g.markers.Subsection + " " + sub
}

func uniqueSections(parsed []parsedCard) []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range parsed {
		if !seen[p.ref.Section] {
			seen[p.ref.Section] = true
			out = append(out, p.ref.Section)
		}
	}
	sort.Ints(out)
	return out
}

// nearestSections orders the other sections by distance to target; ties keep
// ascending order.
func nearestSections(target int, sections []int) []int {
	out := make([]int, 0, len(sections))
	for _, s := range sections {
		if s != target {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i]-target) < abs(out[j]-target)
	})
	return out
}

func sameParagraph(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func distinct(s []string) bool {
	seen := make(map[string]bool, len(s))
	for _, v := range s {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
