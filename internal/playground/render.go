package playground

import (
	"cmp"
	"slices"
)

// RenderOrder returns elements bottom to top: ascending rendering priority,
// ties broken by id.
func RenderOrder(elements map[string]Element) []Element {
	out := make([]Element, 0, len(elements))
	for _, e := range elements {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Element) int {
		if c := cmp.Compare(a.RenderingPriority, b.RenderingPriority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// ResolvedValue is a template value with the card's modifier applied.
type ResolvedValue struct {
	Label    string
	Icon     string
	Base     float64
	Modifier float64
	Total    float64
}

// ResolveCard looks up the card's template and applies its modifiers
// position by position. A missing modifier counts as zero. ok is false when
// e is not a card or its template no longer exists.
func ResolveCard(e Element, templates map[string]Template) (t Template, values []ResolvedValue, ok bool) {
	if e.Type != TypeCard || e.Card == nil {
		return Template{}, nil, false
	}
	t, ok = templates[e.Card.Template]
	if !ok {
		return Template{}, nil, false
	}
	values = make([]ResolvedValue, len(t.Values))
	for i, v := range t.Values {
		var mod float64
		if i < len(e.Card.Modifiers) {
			mod = e.Card.Modifiers[i].Value
		}
		values[i] = ResolvedValue{
			Label:    v.Label,
			Icon:     v.Icon,
			Base:     v.Value,
			Modifier: mod,
			Total:    v.Value + mod,
		}
	}
	return t, values, true
}
