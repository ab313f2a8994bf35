package email

import (
	"context"
	"sync"

	"cvbuilder_backend/internal/logger"
)

// LogProvider ничего не отправляет, только пишет в лог.
// Используется при EMAIL_PROVIDER=none и в тестах.
type LogProvider struct {
	mu   sync.Mutex
	sent []Email
}

func NewLogProvider() *LogProvider { return &LogProvider{} }

func (p *LogProvider) Name() string    { return "log" }
func (p *LogProvider) Validate() error { return nil }

func (p *LogProvider) Send(ctx context.Context, email *Email) error {
	p.mu.Lock()
	p.sent = append(p.sent, *email)
	p.mu.Unlock()

	logger.CtxInfo(ctx, "Email suppressed", "to", email.To, "subject", email.Subject)
	return nil
}

// Sent возвращает копию отправленных писем
func (p *LogProvider) Sent() []Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Email, len(p.sent))
	copy(out, p.sent)
	return out
}
