package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/taskmaster/console/internal/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var (
	markdown = goldmark.New()
	policy   = bluemonday.UGCPolicy()
)

// Renderer renders the console pages. Every page is parsed together with
// layout.html and executed through its "layout" template.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, file := range files {
		name := path.Base(file)
		if name == "layout.html" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(name, ".html")] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// StaticHandler serves the embedded assets under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

var funcs = template.FuncMap{
	"markdown":  renderMarkdown,
	"date":      formatDate,
	"canUpdate": canUpdate,
	"initials":  initials,
	"nameOf":    nameOf,
}

func canUpdate(user *entities.User, task entities.Task) bool {
	return entities.CanUpdateStatus(user, &task)
}

// nameOf resolves an optional user id against a name index.
func nameOf(names map[string]string, id *string) string {
	if id == nil || *id == "" {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return *id
}

// renderMarkdown turns a description into sanitised HTML.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

func formatDate(d *entities.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

func initials(name string) string {
	out := make([]rune, 0, 2)
	for _, part := range strings.Fields(name) {
		out = append(out, []rune(part)[0])
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}
