// Package render turns form definitions and their current state into a view
// model that renderers (HTML, terminal) consume, and keeps a registry of those
// renderers.
package render

import (
	"context"
)

// Renderer converts a View into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View) ([]byte, error)
}
