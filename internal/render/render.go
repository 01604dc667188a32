// Package render turns template names and contexts into HTML responses.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed templates
var templateFS embed.FS

// Context is the data a template is rendered with.
type Context map[string]interface{}

// Renderer writes the named template with the given status.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data Context) error
}

// Options configures an HTMLRenderer.
type Options struct {
	// URL reverses a named route; it backs the "url" template function.
	URL func(name string, pairs ...string) (string, error)
	// MediaURL prefixes stored file references. Defaults to "/media/".
	MediaURL string
	Logger   *slog.Logger
}

// HTMLRenderer renders pages embedded in the binary. Every page is parsed
// together with base.html and the shared includes.
type HTMLRenderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
	bufs   sync.Pool
}

var _ Renderer = (*HTMLRenderer)(nil)

func NewHTMLRenderer(opts Options) (*HTMLRenderer, error) {
	if opts.MediaURL == "" {
		opts.MediaURL = "/media/"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	funcs := templateFuncs(opts)

	includes, err := fs.Glob(templateFS, "templates/includes/*.html")
	if err != nil {
		return nil, err
	}

	pages := map[string]*template.Template{}
	err = fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return err
		}
		name := strings.TrimPrefix(p, "templates/")
		if name == "base.html" || strings.HasPrefix(name, "includes/") {
			return nil
		}

		files := append([]string{"templates/base.html"}, includes...)
		files = append(files, p)
		tmpl, err := template.New(path.Base(p)).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &HTMLRenderer{
		pages:  pages,
		logger: opts.Logger,
		bufs:   sync.Pool{New: func() interface{} { return new(bytes.Buffer) }},
	}, nil
}

// Has reports whether name is a known page.
func (r *HTMLRenderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render executes the page into a buffer first so that a failing template
// never leaves a half written response.
func (r *HTMLRenderer) Render(w http.ResponseWriter, status int, name string, data Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("render: unknown template %q", name)
	}

	buf := r.bufs.Get().(*bytes.Buffer)
	buf.Reset()
	defer r.bufs.Put(buf)

	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", name), slog.Any("error", err))
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
