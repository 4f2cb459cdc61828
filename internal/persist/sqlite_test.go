package persist_test

import (
	"context"
	"testing"

	"github.com/playperu/tabletop/internal/database"
	"github.com/playperu/tabletop/internal/migrations"
	"github.com/playperu/tabletop/internal/persist"
	"github.com/playperu/tabletop/internal/playground"
)

func newSQLite(t *testing.T) *persist.SQLite {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return persist.NewSQLite(db)
}

// exerciseAdapter runs the behaviour every backend shares.
func exerciseAdapter(t *testing.T, a persist.Adapter) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := a.FindDocument(ctx); err != nil || found {
		t.Fatalf("empty backend: found=%v err=%v", found, err)
	}

	tmpl := playground.Template{
		ID:     "tmpl-7",
		Title:  "Goblin",
		Color:  "#0a0",
		Labels: []string{"monster"},
		Values: []playground.CardValue{{Label: "hp", Value: 3, Icon: "heart"}},
	}
	st := playground.NewState()
	st.Templates[tmpl.ID] = tmpl
	st.Elements["card-3"] = playground.NewCard("card-3", 10, 20, 1, tmpl)
	if err := a.CreateDocument(ctx, st); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, found, err := a.FindDocument(ctx)
	if err != nil || !found {
		t.Fatalf("find after create: found=%v err=%v", found, err)
	}
	card := got.Elements["card-3"]
	if card.Card == nil || card.Card.Template != "tmpl-7" || card.X != 10 {
		t.Errorf("card round trip = %+v", card)
	}
	if v := got.Templates["tmpl-7"].Values; len(v) != 1 || v[0].Icon != "heart" {
		t.Errorf("template values = %+v", v)
	}

	// Create is a no-op once the document exists.
	if err := a.CreateDocument(ctx, playground.NewState()); err != nil {
		t.Fatalf("second create: %v", err)
	}
	if got, _, _ := a.FindDocument(ctx); len(got.Elements) != 1 {
		t.Error("second create overwrote the document")
	}

	elements := map[string]playground.Element{"text-1": playground.NewText("text-1", 0, 0, 0, "Hi")}
	if err := a.ReplaceFields(ctx, persist.Fields{Elements: &elements}); err != nil {
		t.Fatalf("replace elements: %v", err)
	}
	got, _, _ = a.FindDocument(ctx)
	if _, ok := got.Elements["card-3"]; ok || len(got.Elements) != 1 {
		t.Errorf("elements = %v, want only text-1", playground.ElementIDs(got.Elements))
	}
	if _, ok := got.Templates["tmpl-7"]; !ok {
		t.Error("templates should be untouched by an elements-only replace")
	}

	empty := map[string]playground.Template{}
	if err := a.ReplaceFields(ctx, persist.Fields{Templates: &empty}); err != nil {
		t.Fatalf("replace templates: %v", err)
	}
	got, _, _ = a.FindDocument(ctx)
	if len(got.Templates) != 0 || len(got.Elements) != 1 {
		t.Errorf("after templates replace: %d elements, %d templates", len(got.Elements), len(got.Templates))
	}
}

func TestSQLite(t *testing.T) {
	exerciseAdapter(t, newSQLite(t))
}

func TestSQLiteReplaceCreatesRow(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	templates := map[string]playground.Template{"t": {ID: "t", Title: "Orc"}}
	if err := s.ReplaceFields(ctx, persist.Fields{Templates: &templates}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, found, err := s.FindDocument(ctx)
	if err != nil || !found {
		t.Fatalf("find: found=%v err=%v", found, err)
	}
	if len(got.Elements) != 0 || len(got.Templates) != 1 {
		t.Errorf("document = %+v", got)
	}
	if err := s.Check(ctx); err != nil {
		t.Errorf("check: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseAdapter(t, persist.NewMemory())
}
