// Package playground defines the shared tabletop document: positioned
// elements (text and cards), the card templates they reference, and the
// in-memory store that holds the authoritative copy.
package playground

import (
	"maps"
	"slices"
)

type ElementType string

const (
	TypeText ElementType = "text"
	TypeCard ElementType = "card"
)

// Element is a positioned object on the playground. Exactly one of Text or
// Card is set, matching Type.
type Element struct {
	ID                string
	X                 float64
	Y                 float64
	Type              ElementType
	RenderingPriority int

	Text *TextBody
	Card *CardBody
}

type TextBody struct {
	Text            string   `json:"text"`
	FontSize        *float64 `json:"fontSize,omitempty"`
	FontWeight      string   `json:"fontWeight,omitempty"`
	FontFamily      string   `json:"fontFamily,omitempty"`
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
}

// CardBody references a template by id. The template may have been deleted;
// readers must treat a missing template as "nothing to render".
type CardBody struct {
	Template  string          `json:"template"`
	Modifiers []ValueModifier `json:"modifiers"`
	IsFaceUp  bool            `json:"isFaceUp"`
}

// ValueModifier adjusts the template value at the same position.
type ValueModifier struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Template struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Color         string      `json:"color"`
	TopRightLabel string      `json:"topRightLabel,omitempty"`
	Labels        []string    `json:"labels"`
	Values        []CardValue `json:"values"`
}

type CardValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Icon  string  `json:"icon,omitempty"`
}

// State is the whole playground document.
type State struct {
	Elements  map[string]Element  `json:"elements"`
	Templates map[string]Template `json:"templates"`
}

func NewState() State {
	return State{
		Elements:  make(map[string]Element),
		Templates: make(map[string]Template),
	}
}

// NewText builds a text element.
func NewText(id string, x, y float64, priority int, text string) Element {
	return Element{
		ID:                id,
		X:                 x,
		Y:                 y,
		Type:              TypeText,
		RenderingPriority: priority,
		Text:              &TextBody{Text: text},
	}
}

// NewCard builds a face-down card whose modifiers line up with the
// template's values, all starting at zero.
func NewCard(id string, x, y float64, priority int, t Template) Element {
	mods := make([]ValueModifier, len(t.Values))
	for i, v := range t.Values {
		mods[i] = ValueModifier{Label: v.Label}
	}
	return Element{
		ID:                id,
		X:                 x,
		Y:                 y,
		Type:              TypeCard,
		RenderingPriority: priority,
		Card:              &CardBody{Template: t.ID, Modifiers: mods},
	}
}

func (e Element) Clone() Element {
	out := e
	if e.Text != nil {
		t := *e.Text
		if e.Text.FontSize != nil {
			size := *e.Text.FontSize
			t.FontSize = &size
		}
		out.Text = &t
	}
	if e.Card != nil {
		c := *e.Card
		c.Modifiers = slices.Clone(e.Card.Modifiers)
		out.Card = &c
	}
	return out
}

func (t Template) Clone() Template {
	out := t
	out.Labels = slices.Clone(t.Labels)
	out.Values = slices.Clone(t.Values)
	return out
}

// Clone returns a deep copy. Nil maps come back empty.
func (s State) Clone() State {
	out := State{
		Elements:  make(map[string]Element, len(s.Elements)),
		Templates: make(map[string]Template, len(s.Templates)),
	}
	for id, e := range s.Elements {
		out.Elements[id] = e.Clone()
	}
	for id, t := range s.Templates {
		out.Templates[id] = t.Clone()
	}
	return out
}

// CloneElements deep-copies an element map.
func CloneElements(in map[string]Element) map[string]Element {
	out := make(map[string]Element, len(in))
	for id, e := range in {
		out[id] = e.Clone()
	}
	return out
}

// CloneTemplates deep-copies a template map.
func CloneTemplates(in map[string]Template) map[string]Template {
	out := make(map[string]Template, len(in))
	for id, t := range in {
		out[id] = t.Clone()
	}
	return out
}

// ElementIDs returns the ids of m in ascending order.
func ElementIDs(m map[string]Element) []string {
	return slices.Sorted(maps.Keys(m))
}

// uniqueLabels drops repeated labels, keeping the first occurrence.
func uniqueLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
