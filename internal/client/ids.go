package client

import (
	"github.com/google/uuid"

	"github.com/playperu/tabletop/internal/playground"
)

// NewElementID returns a fresh id prefixed with the element kind, such as
// "text-6f1c...".
func NewElementID(kind playground.ElementType) string {
	return string(kind) + "-" + uuid.NewString()
}

func NewTemplateID() string {
	return "template-" + uuid.NewString()
}
