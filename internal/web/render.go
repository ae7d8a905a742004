// Package web serves the hotel dashboard and search pages over HTTP.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lueurxax/hotel-dashboard/internal/report"
	db "github.com/lueurxax/hotel-dashboard/internal/storage"
)

const fmtDateTime = "2006-01-02 15:04"

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"cell":   formatCell,
	"header": columnHeader,
	"title":  titleCase,
}

// formatCell renders one result value. NULL becomes "-".
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		return message.NewPrinter(language.English).Sprintf("%.2f", val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		if val.IsZero() {
			return "-"
		}

		return val.Format(fmtDateTime)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// columnHeader turns a snake_case column name into a table heading.
func columnHeader(name string) string {
	return titleCase(strings.ReplaceAll(name, "_", " "))
}

// titleCase uses one Caser per call; Casers are stateful.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Renderer renders dashboard HTML templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("web").
		Funcs(templateFuncs).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse web templates: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render renders a named template.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	return nil
}

// DashboardViewData feeds dashboard.html.
type DashboardViewData struct {
	Title  string
	Panels []report.Panel
}

// SearchViewData feeds search.html.
type SearchViewData struct {
	Title  string
	Kinds  []report.Kind
	Kind   report.Kind
	Term   string
	Result *report.SearchResult
}

// Searched reports whether a query was attempted.
func (d SearchViewData) Searched() bool {
	return d.Term != ""
}

// Table returns the result table, never nil.
func (d SearchViewData) Table() *db.Table {
	if d.Result == nil || d.Result.Table == nil {
		return &db.Table{}
	}

	return d.Result.Table
}

// ErrorViewData feeds error.html.
type ErrorViewData struct {
	Title   string
	Message string
	Status  int
}
