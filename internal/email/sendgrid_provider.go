package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridProvider отправляет письма через SendGrid API
type SendGridProvider struct {
	config Config
	client *sendgrid.Client
}

func NewSendGridProvider(cfg Config) *SendGridProvider {
	return &SendGridProvider{
		config: cfg,
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
	}
}

func (p *SendGridProvider) Name() string { return "sendgrid" }

func (p *SendGridProvider) Validate() error {
	if p.config.SendGridAPIKey == "" {
		return fmt.Errorf("sendgrid api key is required")
	}
	if p.config.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

func (p *SendGridProvider) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	response, err := p.client.SendWithContext(ctx, p.buildMessage(email))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (p *SendGridProvider) buildMessage(email *Email) *mail.SGMailV3 {
	fromAddr, fromName := email.From, email.FromName
	if fromAddr == "" {
		fromAddr, fromName = p.config.FromEmail, p.config.FromName
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(fromName, fromAddr))
	m.Subject = email.Subject

	personalization := mail.NewPersonalization()
	for _, to := range email.To {
		personalization.AddTos(mail.NewEmail("", to))
	}
	m.AddPersonalizations(personalization)

	if email.Body != "" {
		m.AddContent(mail.NewContent("text/plain", email.Body))
	}
	if email.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", email.HTMLBody))
	}

	for _, a := range email.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.ContentType)
		att.SetFilename(a.Name)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}
