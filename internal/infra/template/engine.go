package template

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"stockwatch/internal/domain/stock"
)

var _ stock.Renderer = (*Engine)(nil)

//go:embed templates/*.html
var templatesFS embed.FS

const availabilityTemplate = "availability.html"

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spacesRe = regexp.MustCompile(`[ \t]+`)
)

// Engine renders availability notifications as Telegram-flavoured HTML.
type Engine struct {
	templates *template.Template
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	tmpl, err := template.New("").
		Funcs(template.FuncMap{"thousands": thousands}).
		ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing embedded templates: %w", err)
	}
	return &Engine{templates: tmpl}, nil
}

// Render produces a subject line, HTML body and plain-text fallback for the payload.
func (e *Engine) Render(payload *stock.Payload) (subject, body, text string, err error) {
	if payload == nil || len(payload.Items) == 0 {
		return "", "", "", fmt.Errorf("nothing to render")
	}

	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, availabilityTemplate, payload); err != nil {
		return "", "", "", fmt.Errorf("executing template %s: %w", availabilityTemplate, err)
	}
	body = strings.TrimSpace(buf.String())

	return payload.Title, body, stripHTML(body), nil
}

// stripHTML removes tags and decodes entities while keeping line breaks,
// which carry the message layout.
func stripHTML(s string) string {
	text := html.UnescapeString(tagRe.ReplaceAllString(s, ""))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(spacesRe.ReplaceAllString(l, " "), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// thousands formats n with comma separators (12345 → 12,345).
func thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
