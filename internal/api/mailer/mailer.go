package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"gopkg.in/gomail.v2"
)

const NewMessageTemplate = "new_message.tmpl.html"

//go:embed templates
var templateFS embed.FS

var templates = template.Must(template.New("email").ParseFS(templateFS, "templates/*.tmpl.html"))

type Mailer struct {
	dialer *gomail.Dialer
	sender string
}

// New returns nil when no SMTP host is configured
func New(cfg *common.Config) *Mailer {
	if cfg.SMTP.Host == "" {
		return nil
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password),
		sender: cfg.SMTP.Sender,
	}
}

func (m *Mailer) Send(recipient, templateFile string, data any) error {
	subject, html, err := Render(templateFile, data)
	if err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return m.dialer.DialAndSend(msg)
}

// Render executes the "subject" & "body" blocks of templateFile
func Render(templateFile string, data any) (string, string, error) {
	tmpl := templates.Lookup(templateFile)
	if tmpl == nil {
		return "", "", fmt.Errorf("mailer: no template %q", templateFile)
	}
	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return "", "", err
	}
	html := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(html, "body", data); err != nil {
		return "", "", err
	}
	return subject.String(), html.String(), nil
}
