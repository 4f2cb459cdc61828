package playground

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeElement(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "text",
			payload: `{"id":"text-1","type":"text","x":0,"y":0,"renderingPriority":0,"text":"Hi"}`,
		},
		{
			name:    "text with styling",
			payload: `{"id":"t","type":"text","x":1.5,"y":-2,"renderingPriority":3,"text":"Hi","fontSize":14,"fontWeight":"700","color":"#fff","backgroundColor":"#000","fontFamily":"serif"}`,
		},
		{
			name:    "card",
			payload: `{"id":"card-3","type":"card","x":10,"y":20,"renderingPriority":1,"template":"tmpl-7","modifiers":[{"label":"atk","value":2}],"isFaceUp":true}`,
		},
		{
			name:    "card without modifiers entries",
			payload: `{"id":"card-4","type":"card","x":10,"y":20,"renderingPriority":1,"template":"tmpl-7","modifiers":[],"isFaceUp":false}`,
		},
		{
			name:    "missing id",
			payload: `{"type":"text","x":0,"y":0,"renderingPriority":0,"text":"Hi"}`,
			wantErr: "id is required",
		},
		{
			name:    "missing coordinates",
			payload: `{"id":"a","type":"text","y":0,"renderingPriority":0,"text":"Hi"}`,
			wantErr: "x and y are required",
		},
		{
			name:    "unknown type",
			payload: `{"id":"a","type":"dice","x":0,"y":0,"renderingPriority":0}`,
			wantErr: "unknown type",
		},
		{
			name:    "unknown field",
			payload: `{"id":"a","type":"text","x":0,"y":0,"renderingPriority":0,"text":"Hi","owner":"bob"}`,
			wantErr: "unknown field",
		},
		{
			name:    "card fields on text",
			payload: `{"id":"a","type":"text","x":0,"y":0,"renderingPriority":0,"text":"Hi","isFaceUp":true}`,
			wantErr: "card fields on a text element",
		},
		{
			name:    "text fields on card",
			payload: `{"id":"a","type":"card","x":0,"y":0,"renderingPriority":0,"template":"t","modifiers":[],"isFaceUp":true,"text":"x"}`,
			wantErr: "text fields on a card element",
		},
		{
			name:    "bad font weight",
			payload: `{"id":"a","type":"text","x":0,"y":0,"renderingPriority":0,"text":"Hi","fontWeight":"heavy"}`,
			wantErr: "unknown font weight",
		},
		{
			name:    "fractional priority",
			payload: `{"id":"a","type":"text","x":0,"y":0,"renderingPriority":1.5,"text":"Hi"}`,
			wantErr: "invalid payload",
		},
		{
			name:    "modifier without value",
			payload: `{"id":"a","type":"card","x":0,"y":0,"renderingPriority":0,"template":"t","modifiers":[{"label":"atk"}],"isFaceUp":true}`,
			wantErr: "modifier 0 needs label and value",
		},
		{
			name:    "not json",
			payload: `{"id":`,
			wantErr: "invalid payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeElement([]byte(tt.payload))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestElementJSONShape(t *testing.T) {
	e := NewText("text-1", 0, 0, 0, "Hi")
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat["type"] != "text" || flat["text"] != "Hi" || flat["id"] != "text-1" {
		t.Errorf("unexpected shape: %s", data)
	}
	if _, ok := flat["template"]; ok {
		t.Errorf("text element carries card fields: %s", data)
	}
	if _, ok := flat["fontSize"]; ok {
		t.Errorf("unset optional field was emitted: %s", data)
	}

	card := NewCard("card-1", 1, 2, 0, Template{ID: "tmpl"})
	data, err = json.Marshal(card)
	if err != nil {
		t.Fatalf("marshal card: %v", err)
	}
	if !strings.Contains(string(data), `"modifiers":[]`) {
		t.Errorf("card without modifiers should encode an empty list: %s", data)
	}
	back, err := DecodeElement(data)
	if err != nil {
		t.Fatalf("decoding encoded card: %v", err)
	}
	if back.Card == nil || back.Card.Template != "tmpl" {
		t.Errorf("card body lost: %+v", back)
	}
}

func TestDecodeElements(t *testing.T) {
	good := `{"a":{"id":"a","type":"text","x":0,"y":0,"renderingPriority":0,"text":"A"},
	          "b":{"id":"b","type":"text","x":1,"y":1,"renderingPriority":1,"text":"B"}}`
	m, err := DecodeElements([]byte(good))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("got %d elements, want 2", len(m))
	}

	empty, err := DecodeElements([]byte(`{}`))
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty map: got %v, %v", empty, err)
	}

	for name, payload := range map[string]string{
		"key mismatch": `{"x":{"id":"a","type":"text","x":0,"y":0,"renderingPriority":0,"text":"A"}}`,
		"null":         `null`,
		"array":        `[]`,
		"bad entry":    `{"a":{"id":"a","type":"text"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeElements([]byte(payload)); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDecodeTemplate(t *testing.T) {
	tmpl, err := DecodeTemplate([]byte(`{
		"id":"tmpl-7","title":"Goblin","description":"small","color":"bg-green-500",
		"labels":["monster","monster","small"],
		"values":[{"label":"hp","value":3,"icon":"heart"},{"label":"atk","value":1}]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(tmpl.Labels, ","); got != "monster,small" {
		t.Errorf("labels = %q, want duplicates removed", got)
	}
	if len(tmpl.Values) != 2 || tmpl.Values[0].Icon != "heart" {
		t.Errorf("values = %+v", tmpl.Values)
	}

	noLabels, err := DecodeTemplate([]byte(`{"id":"t","title":"","description":"","color":"","values":[]}`))
	if err != nil {
		t.Fatalf("labels should be optional: %v", err)
	}
	data, _ := json.Marshal(noLabels)
	if !strings.Contains(string(data), `"labels":[]`) {
		t.Errorf("missing labels should encode as []: %s", data)
	}

	for name, payload := range map[string]string{
		"missing id":     `{"title":"a","description":"","color":"","values":[]}`,
		"missing values": `{"id":"t","title":"a","description":"","color":""}`,
		"unknown field":  `{"id":"t","title":"a","description":"","color":"","values":[],"x":1}`,
		"value no label": `{"id":"t","title":"a","description":"","color":"","values":[{"value":1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeTemplate([]byte(payload)); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestStateJSON(t *testing.T) {
	s := NewState()
	s.Elements["text-1"] = NewText("text-1", 0, 0, 0, "Hi")
	s.Templates["tmpl-7"] = Template{ID: "tmpl-7", Title: "Goblin"}
	s.Elements["card-3"] = NewCard("card-3", 5, 5, 1, s.Templates["tmpl-7"])

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Elements) != 2 || len(back.Templates) != 1 {
		t.Fatalf("got %d elements / %d templates", len(back.Elements), len(back.Templates))
	}
	if back.Elements["card-3"].Card.Template != "tmpl-7" {
		t.Errorf("card reference lost")
	}
}
