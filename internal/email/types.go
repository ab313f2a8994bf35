package email

import (
	"fmt"
	"time"
)

// Attachment представляет вложение в email
type Attachment struct {
	Name        string
	Content     []byte
	ContentType string
}

// Email представляет структуру email сообщения
type Email struct {
	From        string
	FromName    string
	To          []string
	Subject     string
	Body        string
	HTMLBody    string
	Attachments []Attachment
}

// TemplateData представляет данные для шаблонов писем
type TemplateData map[string]interface{}

// Config - настройки отправки почты
type Config struct {
	Provider       string // smtp, sendgrid, none
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	UseTLS         bool
	Timeout        time.Duration
	TemplatesDir   string
}

// NewProvider выбирает провайдера по cfg.Provider
func NewProvider(cfg Config) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case "smtp":
		p = NewSMTPProvider(cfg)
	case "sendgrid":
		p = NewSendGridProvider(cfg)
	case "", "none":
		p = NewLogProvider()
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s provider: %w", p.Name(), err)
	}
	return p, nil
}
