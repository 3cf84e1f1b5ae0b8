package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/crm-web/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages holds one parsed template set per page, each combining the shared
// layout with the page's content block.
type Pages struct {
	sets map[string]*template.Template
}

const (
	pageHome     = "home"
	pageRegister = "register"
	pageLogin    = "login"
	pageVerify   = "verify"
)

func NewPages() (*Pages, error) {
	p := &Pages{sets: make(map[string]*template.Template)}
	for _, name := range []string{pageHome, pageRegister, pageLogin, pageVerify} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		p.sets[name] = t
	}
	return p, nil
}

// MustPages is NewPages for package-level wiring; the templates are embedded,
// so a parse failure is a build defect.
func MustPages() *Pages {
	p, err := NewPages()
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pages) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := p.sets[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// userMessage turns a backend error into text for the page.
func userMessage(err error) string {
	var rej *domain.RejectedError
	switch {
	case errors.As(err, &rej) && rej.Detail != "":
		return rej.Detail
	case errors.As(err, &rej):
		return "Request rejected by the server."
	default:
		return domain.MsgUnreachable
	}
}

// statusFor maps a backend error to the status of the page that reports it.
func statusFor(err error) int {
	var rej *domain.RejectedError
	if errors.As(err, &rej) {
		if rej.Status >= 400 && rej.Status < 500 {
			return rej.Status
		}
	}
	return http.StatusBadGateway
}
