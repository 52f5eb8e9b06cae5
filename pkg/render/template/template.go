// Package template defines the template engine seam used by the HTML
// renderers. Implementations live in subpackages.
package template

import "io"

// Engine renders named templates or inline template strings against data.
// When writers are supplied the rendered output is also written to each.
type Engine interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(content string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
