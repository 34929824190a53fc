package storefront

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes page templates inside the shared base layout.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses base.html together with every other page template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}

	base, err := fs.ReadFile(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	for _, p := range pages {
		name := path.Base(p)
		if name == "base.html" {
			continue
		}
		content, err := fs.ReadFile(templateFS, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := template.New("base").Parse(string(base))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base template for %s: %w", name, err)
		}
		if tmpl, err = tmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	if len(r.templates) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return r, nil
}

// Render writes the named page with status code.
func (r *Renderer) Render(w http.ResponseWriter, code int, name string, data any) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", name, err)
	}
	return nil
}

// renderMarkdown converts markdown text to sanitized HTML.
func renderMarkdown(s string) template.HTML {
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(s))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	rendered := markdown.Render(doc, renderer)

	sanitized := bluemonday.UGCPolicy().SanitizeBytes(rendered)
	return template.HTML(sanitized)
}
