package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

const (
	templateVerification = "verification"
	templateWelcome      = "welcome"
)

// Message is a rendered email ready for a provider.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// VerificationEmailData holds data for the verification template
type VerificationEmailData struct {
	CompanyName     string
	UserName        string
	VerificationURL string
	ExpiresIn       string
}

// WelcomeEmailData holds data for the welcome template
type WelcomeEmailData struct {
	CompanyName string
	UserName    string
}

type renderer struct {
	text map[string]*texttemplate.Template
	html map[string]*htmltemplate.Template
}

// loadTemplates parses the embedded text and HTML variant of every template.
func loadTemplates() (*renderer, error) {
	r := &renderer{
		text: make(map[string]*texttemplate.Template),
		html: make(map[string]*htmltemplate.Template),
	}
	for _, name := range []string{templateVerification, templateWelcome} {
		tt, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s.txt: %w", name, err)
		}
		ht, err := htmltemplate.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s.html: %w", name, err)
		}
		r.text[name] = tt
		r.html[name] = ht
	}
	return r, nil
}

func (r *renderer) render(name string, data any) (text, html string, err error) {
	tt, ok := r.text[name]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", name)
	}
	var tb, hb bytes.Buffer
	if err := tt.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	if err := r.html[name].Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return tb.String(), hb.String(), nil
}
