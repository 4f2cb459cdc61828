package client

import (
	"encoding/json"
	"testing"

	"github.com/playperu/tabletop/internal/playground"
)

func stateJSON(t *testing.T, st playground.State) string {
	t.Helper()
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestMirrorIdempotent(t *testing.T) {
	delta := map[string]playground.Element{
		"text-1": playground.NewText("text-1", 1, 2, 0, "Hi"),
	}
	templates := map[string]playground.Template{"t": {ID: "t", Title: "Orc"}}

	m := NewMirror()
	m.ApplyElements(delta)
	m.SetTemplates(templates)
	m.Remove([]string{"nope"})
	once := stateJSON(t, m.Snapshot())

	m.ApplyElements(delta)
	m.SetTemplates(templates)
	m.Remove([]string{"nope"})
	if twice := stateJSON(t, m.Snapshot()); twice != once {
		t.Errorf("replaying changed the mirror:\n%s\n%s", once, twice)
	}
}

func TestMirrorsConverge(t *testing.T) {
	card := playground.NewCard("card-3", 0, 0, 0, playground.Template{ID: "tmpl-7"})
	steps := []func(*Mirror){
		func(m *Mirror) { m.ApplyElements(map[string]playground.Element{"card-3": card}) },
		func(m *Mirror) { m.SetTemplates(map[string]playground.Template{"tmpl-7": {ID: "tmpl-7"}}) },
		func(m *Mirror) {
			moved := card.Clone()
			moved.X = 40
			m.ApplyElements(map[string]playground.Element{"card-3": moved})
		},
		func(m *Mirror) { m.SetTemplates(map[string]playground.Template{}) },
		func(m *Mirror) { m.Remove([]string{"card-3", "card-3"}) },
		func(m *Mirror) {
			m.ApplyElements(map[string]playground.Element{"x": playground.NewText("x", 0, 0, 0, "x")})
		},
	}

	// One mirror starts from a snapshot of unrelated content; the snapshot
	// step makes both agree before the deltas.
	a, b := NewMirror(), NewMirror()
	b.ApplyElements(map[string]playground.Element{"stale": playground.NewText("stale", 0, 0, 0, "old")})
	a.Replace(playground.NewState())
	b.Replace(playground.NewState())

	for _, step := range steps {
		step(a)
		step(b)
		if sa, sb := stateJSON(t, a.Snapshot()), stateJSON(t, b.Snapshot()); sa != sb {
			t.Fatalf("mirrors diverged:\n%s\n%s", sa, sb)
		}
	}
	if ids := a.ElementIDs(); len(ids) != 1 || ids[0] != "x" {
		t.Errorf("final ids = %v", ids)
	}
}

func TestMirrorSnapshotIsolated(t *testing.T) {
	m := NewMirror()
	m.ApplyElements(map[string]playground.Element{"a": playground.NewText("a", 0, 0, 0, "a")})

	snap := m.Snapshot()
	snap.Elements["a"].Text.Text = "changed"
	delete(snap.Elements, "a")

	e, ok := m.Element("a")
	if !ok || e.Text.Text != "a" {
		t.Errorf("mirror was mutated through a snapshot: %+v", e)
	}
}

func TestNewIDs(t *testing.T) {
	a, b := NewElementID(playground.TypeText), NewElementID(playground.TypeText)
	if a == b {
		t.Error("ids repeat")
	}
	if len(a) < 6 || a[:5] != "text-" {
		t.Errorf("id = %q, want text- prefix", a)
	}
	if id := NewTemplateID(); id[:9] != "template-" {
		t.Errorf("template id = %q", id)
	}
}
