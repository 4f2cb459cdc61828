package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/tabletop/internal/playground"
)

// ElementResponse is one element; cards also carry their resolved values.
type ElementResponse struct {
	Element  playground.Element `json:"element"`
	Resolved []ResolvedValue    `json:"resolved,omitempty"`
	Dangling bool               `json:"dangling,omitempty"`
}

type ResolvedValue struct {
	Label    string  `json:"label"`
	Icon     string  `json:"icon,omitempty"`
	Base     float64 `json:"base"`
	Modifier float64 `json:"modifier"`
	Total    float64 `json:"total"`
}

func handleGetPlayground(state Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, state.Get())
	}
}

// handleListElements returns elements bottom to top.
func handleListElements(state Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, playground.RenderOrder(state.Get().Elements))
	}
}

func handleGetElement(state Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := state.Element(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "element not found")
			return
		}

		resp := ElementResponse{Element: e}
		if e.Type == playground.TypeCard {
			_, values, ok := playground.ResolveCard(e, state.Templates())
			resp.Dangling = !ok
			for _, v := range values {
				resp.Resolved = append(resp.Resolved, ResolvedValue(v))
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListTemplates(state Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, state.Templates())
	}
}
