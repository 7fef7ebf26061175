// Package templates renders the embedded email templates.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/iliyamo/event-ticketing/internal/money"
)

//go:embed html/*.html
var files embed.FS

// Renderer executes named HTML templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses every embedded template.
func New() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"money": money.Format,
	}).ParseFS(files, "html/*.html")
	if err != nil {
		return nil, fmt.Errorf("templates: parse: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// MustNew is New for program start-up.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes the template called name with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("templates: render %s: %w", name, err)
	}
	return buf.String(), nil
}
