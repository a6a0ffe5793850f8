package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports a raw or canonical record that violates the
// expected shape. Path names the offending field, e.g. "content.paragraphs[1].id".
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid question: %s: %s", e.Path, e.Reason)
}

func invalid(path, reason string) error {
	return &ValidationError{Path: path, Reason: reason}
}

// Normalizer turns raw question records into canonical cards.
type Normalizer struct {
	Markers Markers
}

func NewNormalizer(m Markers) *Normalizer {
	return &Normalizer{Markers: m}
}

// Normalize expands one raw record with the default markers.
func Normalize(raw json.RawMessage) ([]Card, error) {
	return NewNormalizer(DefaultMarkers).Normalize(raw)
}

// NormalizeAll expands a raw question set, failing on the first invalid record.
func (n *Normalizer) NormalizeAll(raws []json.RawMessage) ([]Card, error) {
	out := make([]Card, 0, len(raws))
	for i, raw := range raws {
		cards, err := n.Normalize(raw)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, invalid(fmt.Sprintf("[%d].%s", i, ve.Path), ve.Reason)
			}
			return nil, err
		}
		out = append(out, cards...)
	}
	return out, nil
}

// Normalize expands one raw record into one or more cards. A record is
// complex when it has both "title" and "content"; anything else is flat and
// passes through unchanged.
func (n *Normalizer) Normalize(raw json.RawMessage) ([]Card, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, invalid("$", "record must be an object")
	}
	_, hasTitle := fields["title"]
	_, hasContent := fields["content"]
	if hasTitle && hasContent {
		var rq RawComplexQuestion
		if err := rq.decode(fields); err != nil {
			return nil, err
		}
		return n.expand(rq)
	}
	card, err := flatCard(fields)
	if err != nil {
		return nil, err
	}
	return []Card{card}, nil
}

func flatCard(fields map[string]json.RawMessage) (Card, error) {
	var c Card
	var err error
	if c.ID, err = requiredString(fields, "id"); err != nil {
		return Card{}, err
	}
	if c.Question, err = requiredString(fields, "question"); err != nil {
		return Card{}, err
	}
	if c.Answer, err = requiredString(fields, "answer"); err != nil {
		return Card{}, err
	}
	if t, ok := fields["title"]; ok && !isNull(t) {
		if err := json.Unmarshal(t, &c.Title); err != nil {
			return Card{}, invalid("title", "must be a string")
		}
	}
	if si, ok := fields["sourceIndex"]; ok && !isNull(si) {
		var idx int
		if err := json.Unmarshal(si, &idx); err != nil {
			return Card{}, invalid("sourceIndex", "must be an integer")
		}
		c.SourceIndex = &idx
	}
	return c, nil
}

// RawComplexQuestion is the nested section/paragraph/subsection record.
type RawComplexQuestion struct {
	ID         string
	Title      string
	Paragraphs []RawParagraph
}

type RawParagraph struct {
	ID          int
	Content     string
	Subsections []RawSubsection
}

type RawSubsection struct {
	ID      string
	Content string
}

func (rq *RawComplexQuestion) decode(fields map[string]json.RawMessage) error {
	id, err := requiredString(fields, "id")
	if err != nil {
		return err
	}
	rq.ID = id
	if t := fields["title"]; !isNull(t) {
		if err := json.Unmarshal(t, &rq.Title); err != nil {
			return invalid("title", "must be a string")
		}
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(fields["content"], &body); err != nil || body == nil {
		return invalid("content", "must be an object")
	}
	var paras []map[string]json.RawMessage
	if isNull(body["paragraphs"]) || json.Unmarshal(body["paragraphs"], &paras) != nil {
		return invalid("content.paragraphs", "must be an array")
	}
	if len(paras) == 0 {
		return invalid("content.paragraphs", "must not be empty")
	}

	rq.Paragraphs = make([]RawParagraph, 0, len(paras))
	for i, p := range paras {
		path := fmt.Sprintf("content.paragraphs[%d]", i)
		var rp RawParagraph
		var num json.Number
		if err := unmarshalNumber(p["id"], &num); err != nil {
			return invalid(path+".id", "must be a number")
		}
		pid, err := num.Int64()
		if err != nil {
			return invalid(path+".id", "must be an integer")
		}
		rp.ID = int(pid)
		if isNull(p["content"]) || json.Unmarshal(p["content"], &rp.Content) != nil {
			return invalid(path+".content", "must be a string")
		}
		if subs, ok := p["subsections"]; ok && !isNull(subs) {
			var raw []map[string]json.RawMessage
			if err := json.Unmarshal(subs, &raw); err != nil {
				return invalid(path+".subsections", "must be an array")
			}
			for j, s := range raw {
				spath := fmt.Sprintf("%s.subsections[%d]", path, j)
				sid, err := subsectionID(s["id"])
				if err != nil {
					return invalid(spath+".id", err.Error())
				}
				var sc string
				if isNull(s["content"]) || json.Unmarshal(s["content"], &sc) != nil {
					return invalid(spath+".content", "must be a string")
				}
				rp.Subsections = append(rp.Subsections, RawSubsection{ID: sid, Content: sc})
			}
		}
		rq.Paragraphs = append(rq.Paragraphs, rp)
	}
	return nil
}

// expand emits, in order: the whole-section card, one card per paragraph
// (only when there is more than one), then one card per subsection.
func (n *Normalizer) expand(rq RawComplexQuestion) ([]Card, error) {
	m := n.Markers
	multi := len(rq.Paragraphs) > 1
	number := m.StripSection(rq.ID)
	sectionQ := m.Section + " " + number

	question := rq.Title
	if strings.TrimSpace(question) == "" {
		question = rq.ID
	}

	whole := []string{rq.ID}
	for _, p := range rq.Paragraphs {
		prefix := ""
		if multi {
			prefix = m.Paragraph + " " + strconv.Itoa(p.ID)
		}
		whole = append(whole, "", prefix+" "+p.Content)
		whole = appendSubsections(whole, p.Subsections)
	}
	cards := []Card{{
		ID:       rq.ID,
		Question: question,
		Answer:   strings.Join(whole, "\n"),
		Title:    rq.Title,
	}}

	if multi {
		for _, p := range rq.Paragraphs {
			suffix := " " + m.Paragraph + " " + strconv.Itoa(p.ID)
			id := rq.ID + suffix
			lines := appendSubsections([]string{id, "", p.Content}, p.Subsections)
			cards = append(cards, Card{
				ID:       id,
				Question: sectionQ + suffix,
				Answer:   strings.Join(lines, "\n"),
			})
		}
	}

	for _, p := range rq.Paragraphs {
		for _, s := range p.Subsections {
			suffix := " " + m.Subsection + " " + s.ID
			if multi {
				suffix = " " + m.Paragraph + " " + strconv.Itoa(p.ID) + suffix
			}
			id := rq.ID + suffix
			cards = append(cards, Card{
				ID:       id,
				Question: sectionQ + suffix,
				Answer:   strings.Join([]string{id, "", s.Content}, "\n"),
			})
		}
	}

	for i, c := range cards {
		if err := Validate(c); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, invalid(fmt.Sprintf("expanded[%d].%s", i, ve.Path), ve.Reason)
			}
			return nil, err
		}
	}
	return cards, nil
}

func appendSubsections(lines []string, subs []RawSubsection) []string {
	for _, s := range subs {
		lines = append(lines, "", "("+s.ID+") "+s.Content)
	}
	return lines
}

// Validate checks the canonical card invariants.
func Validate(c Card) error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return invalid("id", "must be a non-empty string")
	case strings.TrimSpace(c.Question) == "":
		return invalid("question", "must be a non-empty string")
	case strings.TrimSpace(c.Answer) == "":
		return invalid("answer", "must be a non-empty string")
	}
	return nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", invalid(key, "must be a non-empty string")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", invalid(key, "must be a non-empty string")
	}
	return s, nil
}

func subsectionID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", fmt.Errorf("must be a number")
	}
	var num json.Number
	if err := unmarshalNumber(raw, &num); err == nil {
		return num.String(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), nil
	}
	return "", fmt.Errorf("must be a number")
}

// unmarshalNumber rejects quoted numbers, which json.Number would accept.
func unmarshalNumber(raw json.RawMessage, n *json.Number) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || isNull(raw) {
		return fmt.Errorf("not a number")
	}
	return json.Unmarshal(raw, n)
}

func isNull(raw json.RawMessage) bool {
	return raw == nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
