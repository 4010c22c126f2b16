package dashboard

import "io"

// Renderer executes a named page template. go-template's renderer satisfies it.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}
