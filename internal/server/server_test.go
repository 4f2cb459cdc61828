package server

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/playperu/tabletop/internal/hub"
	"github.com/playperu/tabletop/internal/playground"
)

// newTestServer runs a hub over store and serves the full router.
func newTestServer(t *testing.T, store *playground.Store, opts Options) *httptest.Server {
	t.Helper()
	if opts.PeerBuffer == 0 {
		opts.PeerBuffer = 64
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	h := hub.New(store, nil, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(New(opts, slog.Default(), h, store).Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return srv
}

func seededStore() *playground.Store {
	tmpl := playground.Template{
		ID:     "tmpl-7",
		Title:  "Goblin",
		Values: []playground.CardValue{{Label: "hp", Value: 5}, {Label: "atk", Value: 2}},
	}
	card := playground.NewCard("card-3", 10, 10, 2, tmpl)
	card.Card.Modifiers[0].Value = -1

	st := playground.NewState()
	st.Templates[tmpl.ID] = tmpl
	st.Elements[card.ID] = card
	st.Elements["orphan"] = playground.NewCard("orphan", 0, 0, 0, playground.Template{ID: "gone"})
	st.Elements["text-1"] = playground.NewText("text-1", 0, 0, 1, "Hi")
	return playground.NewStore(st)
}
