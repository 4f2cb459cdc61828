package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/tabletop/internal/handler/health"
	"github.com/playperu/tabletop/internal/playground"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the overall status plus one entry per checked dependency.
type HealthResponse = health.Report

// elementDoc describes the flat wire shape of an element. Text fields are
// present on text elements, card fields on cards.
type elementDoc struct {
	ID                string  `json:"id" required:"true"`
	X                 float64 `json:"x" required:"true"`
	Y                 float64 `json:"y" required:"true"`
	Type              string  `json:"type" required:"true" enum:"text,card"`
	RenderingPriority int     `json:"renderingPriority" required:"true"`

	Text            string   `json:"text,omitempty"`
	FontSize        *float64 `json:"fontSize,omitempty"`
	FontWeight      string   `json:"fontWeight,omitempty"`
	FontFamily      string   `json:"fontFamily,omitempty"`
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`

	Template  string                     `json:"template,omitempty"`
	Modifiers []playground.ValueModifier `json:"modifiers,omitempty"`
	IsFaceUp  *bool                      `json:"isFaceUp,omitempty"`
}

type stateDoc struct {
	Elements  map[string]elementDoc          `json:"elements"`
	Templates map[string]playground.Template `json:"templates"`
}

type elementResponseDoc struct {
	Element  elementDoc      `json:"element"`
	Resolved []ResolvedValue `json:"resolved,omitempty"`
	Dangling bool            `json:"dangling,omitempty"`
}

type elementPath struct {
	ID string `path:"id"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Tabletop API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Shared tabletop playground. Mutations go through the websocket; the HTTP API is read-only.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the storage backend.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Playground sync")
	getWS.SetDescription("Upgrades to a WebSocket carrying JSON frames {type, requestId, payload}. " +
		"The first frame is playgroundState; mutations are broadcast as elementState, " +
		"removeElementState and templateState.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/playground
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/playground")
	getState.SetSummary("Get playground")
	getState.SetDescription("Returns the full playground: elements and templates keyed by id.")
	getState.AddRespStructure(stateDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// GET /api/playground/elements
	listElements, _ := r.NewOperationContext(http.MethodGet, "/api/playground/elements")
	listElements.SetSummary("List elements")
	listElements.SetDescription("Returns elements in render order, bottom to top.")
	listElements.AddRespStructure([]elementDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listElements)

	// GET /api/playground/elements/{id}
	getElement, _ := r.NewOperationContext(http.MethodGet, "/api/playground/elements/{id}")
	getElement.SetSummary("Get element")
	getElement.SetDescription("Returns one element. Cards include their values with modifiers applied, " +
		"or dangling=true when the template no longer exists.")
	getElement.AddReqStructure(elementPath{})
	getElement.AddRespStructure(elementResponseDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	getElement.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getElement)

	// GET /api/playground/templates
	listTemplates, _ := r.NewOperationContext(http.MethodGet, "/api/playground/templates")
	listTemplates.SetSummary("List templates")
	listTemplates.SetDescription("Returns every card template keyed by id.")
	listTemplates.AddRespStructure(map[string]playground.Template{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTemplates)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
