// Package persist stores the playground document and writes it back in the
// background after mutations.
package persist

import (
	"context"
	"log/slog"

	"github.com/playperu/tabletop/internal/playground"
)

// Fields selects which parts of the document a replace touches. A nil field
// is left as stored.
type Fields struct {
	Elements  *map[string]playground.Element
	Templates *map[string]playground.Template
}

// Adapter is a store holding exactly one playground document.
type Adapter interface {
	// FindDocument returns the stored document, or false if none exists.
	FindDocument(ctx context.Context) (playground.State, bool, error)
	// CreateDocument stores st unless a document already exists.
	CreateDocument(ctx context.Context, st playground.State) error
	// ReplaceFields upserts the document, replacing only the fields set.
	ReplaceFields(ctx context.Context, f Fields) error
}

// LoadOrCreate reads the document from a, creating an empty one on first
// run. A read failure is logged and the playground starts empty.
func LoadOrCreate(ctx context.Context, a Adapter, logger *slog.Logger) *playground.Store {
	st, found, err := a.FindDocument(ctx)
	if err != nil {
		logger.Error("loading playground failed, starting empty", "error", err)
		return playground.NewStore(playground.NewState())
	}
	if !found {
		st = playground.NewState()
		if err := a.CreateDocument(ctx, st); err != nil {
			logger.Error("creating playground document failed", "error", err)
		} else {
			logger.Info("created empty playground document")
		}
		return playground.NewStore(st)
	}

	logger.Info("loaded playground", "elements", len(st.Elements), "templates", len(st.Templates))
	return playground.NewStore(st)
}

// apply merges f into st in place.
func (f Fields) apply(st *playground.State) {
	if f.Elements != nil {
		st.Elements = playground.CloneElements(*f.Elements)
	}
	if f.Templates != nil {
		st.Templates = playground.CloneTemplates(*f.Templates)
	}
}
