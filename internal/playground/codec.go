package playground

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalid marks a payload that failed decoding or validation.
var ErrInvalid = errors.New("invalid payload")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func asInvalid(err error) error {
	if errors.Is(err, ErrInvalid) {
		return err
	}
	return invalidf("%v", err)
}

var fontWeights = map[string]bool{
	"normal": true, "bold": true,
	"100": true, "200": true, "300": true, "400": true, "500": true,
	"600": true, "700": true, "800": true, "900": true,
}

// Validate checks that the element is well formed: an id, finite
// coordinates and a body matching its type.
func (e Element) Validate() error {
	if e.ID == "" {
		return invalidf("element id is required")
	}
	if !finite(e.X) || !finite(e.Y) {
		return invalidf("element %q: coordinates must be finite", e.ID)
	}
	switch e.Type {
	case TypeText:
		if e.Text == nil || e.Card != nil {
			return invalidf("element %q: text element needs a text body only", e.ID)
		}
		if e.Text.FontWeight != "" && !fontWeights[e.Text.FontWeight] {
			return invalidf("element %q: unknown font weight %q", e.ID, e.Text.FontWeight)
		}
		if e.Text.FontSize != nil && (!finite(*e.Text.FontSize) || *e.Text.FontSize <= 0) {
			return invalidf("element %q: font size must be positive", e.ID)
		}
	case TypeCard:
		if e.Card == nil || e.Text != nil {
			return invalidf("element %q: card element needs a card body only", e.ID)
		}
		if e.Card.Template == "" {
			return invalidf("element %q: template is required", e.ID)
		}
		for i, m := range e.Card.Modifiers {
			if !finite(m.Value) {
				return invalidf("element %q: modifier %d must be finite", e.ID, i)
			}
		}
	default:
		return invalidf("element %q: unknown type %q", e.ID, e.Type)
	}
	return nil
}

// Validate checks the required template fields.
func (t Template) Validate() error {
	if t.ID == "" {
		return invalidf("template id is required")
	}
	for i, v := range t.Values {
		if !finite(v.Value) {
			return invalidf("template %q: value %d must be finite", t.ID, i)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// DecodeElement parses one element and validates it.
func DecodeElement(data []byte) (Element, error) {
	var e Element
	if err := json.Unmarshal(data, &e); err != nil {
		return Element{}, asInvalid(err)
	}
	return e, nil
}

// DecodeElements parses an id->element map. Every key must equal the id of
// the element stored under it.
func DecodeElements(data []byte) (map[string]Element, error) {
	var m map[string]Element
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, asInvalid(err)
	}
	if m == nil {
		return nil, invalidf("element map is required")
	}
	for key, e := range m {
		if key != e.ID {
			return nil, invalidf("element map key %q does not match id %q", key, e.ID)
		}
	}
	return m, nil
}

// DecodeTemplate parses one template and validates it.
func DecodeTemplate(data []byte) (Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, asInvalid(err)
	}
	return t, nil
}

// strictUnmarshal rejects fields the target does not declare.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// elementJSON is the flat wire shape; nil bodies are omitted.
type elementJSON struct {
	ID                string      `json:"id"`
	X                 float64     `json:"x"`
	Y                 float64     `json:"y"`
	Type              ElementType `json:"type"`
	RenderingPriority int         `json:"renderingPriority"`
	*TextBody
	*CardBody
}

func (e Element) MarshalJSON() ([]byte, error) {
	out := elementJSON{
		ID:                e.ID,
		X:                 e.X,
		Y:                 e.Y,
		Type:              e.Type,
		RenderingPriority: e.RenderingPriority,
	}
	switch e.Type {
	case TypeText:
		if e.Text == nil {
			return nil, fmt.Errorf("text element %q has no body", e.ID)
		}
		out.TextBody = e.Text
	case TypeCard:
		if e.Card == nil {
			return nil, fmt.Errorf("card element %q has no body", e.ID)
		}
		card := *e.Card
		if card.Modifiers == nil {
			card.Modifiers = []ValueModifier{}
		}
		out.CardBody = &card
	}
	return json.Marshal(out)
}

// elementWire uses pointers so a missing required field can be told apart
// from its zero value.
type elementWire struct {
	ID                *string      `json:"id"`
	X                 *float64     `json:"x"`
	Y                 *float64     `json:"y"`
	Type              *ElementType `json:"type"`
	RenderingPriority *int         `json:"renderingPriority"`

	Text            *string  `json:"text"`
	FontSize        *float64 `json:"fontSize"`
	FontWeight      *string  `json:"fontWeight"`
	FontFamily      *string  `json:"fontFamily"`
	Color           *string  `json:"color"`
	BackgroundColor *string  `json:"backgroundColor"`

	Template  *string         `json:"template"`
	Modifiers *[]modifierWire `json:"modifiers"`
	IsFaceUp  *bool           `json:"isFaceUp"`
}

type modifierWire struct {
	Label *string  `json:"label"`
	Value *float64 `json:"value"`
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var w elementWire
	if err := strictUnmarshal(data, &w); err != nil {
		return invalidf("element: %v", err)
	}
	el, err := w.element()
	if err != nil {
		return err
	}
	if err := el.Validate(); err != nil {
		return err
	}
	*e = el
	return nil
}

func (w elementWire) element() (Element, error) {
	switch {
	case w.ID == nil:
		return Element{}, invalidf("element id is required")
	case w.X == nil || w.Y == nil:
		return Element{}, invalidf("element %q: x and y are required", *w.ID)
	case w.Type == nil:
		return Element{}, invalidf("element %q: type is required", *w.ID)
	case w.RenderingPriority == nil:
		return Element{}, invalidf("element %q: renderingPriority is required", *w.ID)
	}

	e := Element{
		ID:                *w.ID,
		X:                 *w.X,
		Y:                 *w.Y,
		Type:              *w.Type,
		RenderingPriority: *w.RenderingPriority,
	}

	hasText := w.Text != nil || w.FontSize != nil || w.FontWeight != nil ||
		w.FontFamily != nil || w.Color != nil || w.BackgroundColor != nil
	hasCard := w.Template != nil || w.Modifiers != nil || w.IsFaceUp != nil

	switch e.Type {
	case TypeText:
		if hasCard {
			return Element{}, invalidf("element %q: card fields on a text element", e.ID)
		}
		if w.Text == nil {
			return Element{}, invalidf("element %q: text is required", e.ID)
		}
		e.Text = &TextBody{
			Text:            *w.Text,
			FontSize:        w.FontSize,
			FontWeight:      deref(w.FontWeight),
			FontFamily:      deref(w.FontFamily),
			Color:           deref(w.Color),
			BackgroundColor: deref(w.BackgroundColor),
		}
	case TypeCard:
		if hasText {
			return Element{}, invalidf("element %q: text fields on a card element", e.ID)
		}
		if w.Template == nil || w.Modifiers == nil || w.IsFaceUp == nil {
			return Element{}, invalidf("element %q: template, modifiers and isFaceUp are required", e.ID)
		}
		mods := make([]ValueModifier, 0, len(*w.Modifiers))
		for i, m := range *w.Modifiers {
			if m.Label == nil || m.Value == nil {
				return Element{}, invalidf("element %q: modifier %d needs label and value", e.ID, i)
			}
			mods = append(mods, ValueModifier{Label: *m.Label, Value: *m.Value})
		}
		e.Card = &CardBody{Template: *w.Template, Modifiers: mods, IsFaceUp: *w.IsFaceUp}
	default:
		return Element{}, invalidf("element %q: unknown type %q", e.ID, e.Type)
	}
	return e, nil
}

type templateWire struct {
	ID            *string      `json:"id"`
	Title         *string      `json:"title"`
	Description   *string      `json:"description"`
	Color         *string      `json:"color"`
	TopRightLabel *string      `json:"topRightLabel"`
	Labels        []string     `json:"labels"`
	Values        *[]valueWire `json:"values"`
}

type valueWire struct {
	Label *string  `json:"label"`
	Value *float64 `json:"value"`
	Icon  *string  `json:"icon"`
}

func (t Template) MarshalJSON() ([]byte, error) {
	type plain Template
	out := plain(t)
	if out.Labels == nil {
		out.Labels = []string{}
	}
	if out.Values == nil {
		out.Values = []CardValue{}
	}
	return json.Marshal(out)
}

func (t *Template) UnmarshalJSON(data []byte) error {
	var w templateWire
	if err := strictUnmarshal(data, &w); err != nil {
		return invalidf("template: %v", err)
	}
	if w.ID == nil {
		return invalidf("template id is required")
	}
	if w.Title == nil || w.Description == nil || w.Color == nil || w.Values == nil {
		return invalidf("template %q: title, description, color and values are required", *w.ID)
	}
	out := Template{
		ID:            *w.ID,
		Title:         *w.Title,
		Description:   *w.Description,
		Color:         *w.Color,
		TopRightLabel: deref(w.TopRightLabel),
		Labels:        uniqueLabels(w.Labels),
		Values:        make([]CardValue, 0, len(*w.Values)),
	}
	for i, v := range *w.Values {
		if v.Label == nil || v.Value == nil {
			return invalidf("template %q: value %d needs label and value", out.ID, i)
		}
		out.Values = append(out.Values, CardValue{Label: *v.Label, Value: *v.Value, Icon: deref(v.Icon)})
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*t = out
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
