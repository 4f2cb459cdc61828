// Package protocol defines the websocket frames exchanged between the
// playground server and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playperu/tabletop/internal/playground"
)

type Event string

// Client to server.
const (
	GetPlaygroundState Event = "getPlaygroundState"
	UpdateElement      Event = "updateElement"
	AddElement         Event = "addElement"
	DeleteElement      Event = "deleteElement"
	UpdateElements     Event = "updateElements"
	UpdateTemplate     Event = "updateTemplate"
	AddTemplate        Event = "addTemplate"
	DeleteTemplate     Event = "deleteTemplate"
)

// Server to client.
const (
	PlaygroundState    Event = "playgroundState"
	ElementState       Event = "elementState"
	RemoveElementState Event = "removeElementState"
	TemplateState      Event = "templateState"
	Error              Event = "error"
)

// Rejection codes carried by Error frames.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeUnsupported     = "UNSUPPORTED"
)

// Frame is one websocket message.
type Frame struct {
	Type      Event           `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewFrame encodes payload into a frame. A nil payload leaves it empty.
func NewFrame(typ Event, payload any) (Frame, error) {
	f := Frame{Type: typ}
	if payload == nil {
		return f, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s payload: %w", typ, err)
	}
	f.Payload = data
	return f, nil
}

// Encode returns the wire bytes of a frame.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	return data, nil
}

// ErrorFrame builds a rejection addressed to the request that caused it.
func ErrorFrame(requestID, code, message string) Frame {
	data, _ := json.Marshal(ErrorPayload{Code: code, Message: message})
	return Frame{Type: Error, RequestID: requestID, Payload: data}
}

// Decode parses a frame envelope. The payload is left raw.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: frame: %v", playground.ErrInvalid, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: frame type is required", playground.ErrInvalid)
	}
	return f, nil
}

// DecodeID reads the id of a delete request. The payload is either the id
// as a JSON string or an object carrying an "id" field, such as the whole
// element or template being deleted.
func DecodeID(payload json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(payload, &id); err == nil {
		if strings.TrimSpace(id) == "" {
			return "", fmt.Errorf("%w: id is required", playground.ErrInvalid)
		}
		return id, nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil || obj.ID == "" {
		return "", fmt.Errorf("%w: expected an id string or an object with an id", playground.ErrInvalid)
	}
	return obj.ID, nil
}
