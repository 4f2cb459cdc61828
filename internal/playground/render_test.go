package playground

import "testing"

func TestRenderOrder(t *testing.T) {
	elements := map[string]Element{
		"c": NewText("c", 0, 0, 1, "c"),
		"a": NewText("a", 0, 0, 1, "a"),
		"z": NewText("z", 0, 0, -1, "z"),
		"b": NewText("b", 0, 0, 5, "b"),
	}

	var got []string
	for _, e := range RenderOrder(elements) {
		got = append(got, e.ID)
	}
	want := []string{"z", "a", "c", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestResolveCard(t *testing.T) {
	tmpl := Template{
		ID: "tmpl",
		Values: []CardValue{
			{Label: "hp", Value: 10, Icon: "heart"},
			{Label: "atk", Value: 2},
			{Label: "def", Value: 1},
		},
	}
	templates := map[string]Template{"tmpl": tmpl}

	card := NewCard("card", 0, 0, 0, tmpl)
	card.Card.Modifiers = []ValueModifier{{Label: "hp", Value: -3}}

	_, values, ok := ResolveCard(card, templates)
	if !ok {
		t.Fatal("expected template to resolve")
	}
	if len(values) != 3 {
		t.Fatalf("got %d values, want 3", len(values))
	}
	if values[0].Total != 7 || values[0].Icon != "heart" {
		t.Errorf("hp = %+v, want total 7", values[0])
	}
	if values[1].Modifier != 0 || values[1].Total != 2 {
		t.Errorf("missing modifier should count as zero: %+v", values[1])
	}

	tests := []struct {
		name      string
		element   Element
		templates map[string]Template
	}{
		{"dangling template", card, map[string]Template{}},
		{"nil templates", card, nil},
		{"text element", NewText("t", 0, 0, 0, "x"), templates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := ResolveCard(tt.element, tt.templates); ok {
				t.Error("expected no resolution")
			}
		})
	}
}
