package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to[0], subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

const purchaseConfirmationBody = `<html><body>
<p>Hi {{.first_name}},</p>
<p>Your purchase of <strong>{{.credits}}</strong> credits is complete.</p>
<p>Amount charged: {{.amount}} {{.currency}}.</p>
<p>Happy ranking,<br>The Rankforge team</p>
</body></html>`

var templates = map[string]*template.Template{
	"purchase_confirmation": template.Must(template.New("purchase_confirmation").Parse(purchaseConfirmationBody)),
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	t, ok := templates[templateName]
	if !ok {
		return fmt.Errorf("unknown email template %q", templateName)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "Notification from Rankforge"
	if subj, ok := data["subject"].(string); ok && subj != "" {
		subject = subj
	} else if templateName == "purchase_confirmation" {
		subject = "Your Rankforge credits are ready"
	}

	return p.Send(ctx, to, subject, body.String())
}
