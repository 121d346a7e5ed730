package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Confirmation asks a new subscriber to confirm their address.
func Confirmation(from, to, siteURL, token string) (Message, error) {
	html, err := render("confirmation.html", map[string]string{
		"SiteURL": strings.TrimRight(siteURL, "/"),
		"Token":   token,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{From: from, To: []string{to}, Subject: "Confirm your subscription to Peptide Professor", HTML: html}, nil
}

func Welcome(from, to, siteURL string) (Message, error) {
	html, err := render("welcome.html", map[string]string{
		"SiteURL": strings.TrimRight(siteURL, "/"),
		"Email":   to,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{From: from, To: []string{to}, Subject: "Welcome to Peptide Professor Newsletter!", HTML: html}, nil
}

type ContactFields struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactNotification forwards a contact form submission to the site admin.
// User input is HTML-escaped.
func ContactNotification(from, admin string, f ContactFields) (Message, error) {
	html, err := render("contact.html", f)
	if err != nil {
		return Message{}, err
	}
	return Message{From: from, To: []string{admin}, Subject: "Contact Form: " + f.Subject, HTML: html}, nil
}
