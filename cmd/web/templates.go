package main

import (
	"html/template"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/mabego/chat-mysql/internal/models"
	"github.com/mabego/chat-mysql/ui"
)

// templateData holds dynamic data to pass to HTML templates.
type templateData struct {
	IsAuthenticated bool
	CurrentYear     int
	Flash           string
	CSRFToken       string
	UserID          string
	Peer            *models.User
	Users           []*models.User
	Form            any
}

func humanDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 02 2006 at 15:04")
}

var functions = template.FuncMap{"humanDate": humanDate}

func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}

	pages, err := fs.Glob(ui.Files, "html/*.page.tmpl")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := filepath.Base(page)

		// The page is parsed last so that it can override blocks declared by the layout.
		patterns := []string{
			"html/base.layout.tmpl",
			"html/*.partial.tmpl",
			page,
		}

		ts, err := template.New(name).Funcs(functions).ParseFS(ui.Files, patterns...)
		if err != nil {
			return nil, err
		}

		cache[name] = ts
	}

	return cache, nil
}
