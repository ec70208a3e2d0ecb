// Package view holds the server-rendered pages of the web front end.
package view

import (
	"embed"
	"html/template"
	"time"

	"contractrisk/internal/model"
	"contractrisk/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title    string
	LoggedIn bool
	Notices  []session.Notice
	Data     any
}

// RedirectData drives the notice page that navigates away after a delay.
type RedirectData struct {
	Path    string
	DelayMS int64
}

// Seconds is the meta refresh delay, rounded up so the notice stays readable.
func (r RedirectData) Seconds() int64 {
	return (r.DelayMS + 999) / 1000
}

func NewRedirect(path string, after time.Duration) RedirectData {
	return RedirectData{Path: path, DelayMS: after.Milliseconds()}
}

var funcs = template.FuncMap{
	"severity": model.Severity,
	"noticeClass": func(level string) string {
		switch level {
		case session.NoticeError:
			return "notice notice-error"
		case session.NoticeSuccess:
			return "notice notice-success"
		default:
			return "notice notice-info"
		}
	},
}

// Templates parses the embedded page set. Each page is a named template.
func Templates() (*template.Template, error) {
	return template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
