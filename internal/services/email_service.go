package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cvbuilder_backend/internal/email"
	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/models"
)

// EmailService - транзакционные письма. Отправка асинхронная,
// ошибки только логируются и не влияют на ответ API.
type EmailService interface {
	SendWelcome(ctx context.Context, user *models.User)
	SendVerification(ctx context.Context, user *models.User, token string)
	SendPasswordReset(ctx context.Context, user *models.User, token string, ttl time.Duration)
	SendSubscriptionChanged(ctx context.Context, user *models.User)
}

type emailService struct {
	provider    email.Provider
	templates   email.TemplateRenderer
	baseURL     string
	freeCVLimit int
	dispatch    func(func())
}

func NewEmailService(provider email.Provider, templates email.TemplateRenderer, baseURL string, freeCVLimit int) EmailService {
	return &emailService{
		provider:    provider,
		templates:   templates,
		baseURL:     baseURL,
		freeCVLimit: freeCVLimit,
		dispatch:    func(f func()) { go f() },
	}
}

func (s *emailService) SendWelcome(ctx context.Context, user *models.User) {
	s.send(ctx, user, "Welcome to CV Builder", email.TemplateWelcome, email.TemplateData{
		"Name":    user.Name,
		"CVLimit": s.freeCVLimit,
	})
}

func (s *emailService) SendVerification(ctx context.Context, user *models.User, token string) {
	s.send(ctx, user, "Confirm your email", email.TemplateVerifyEmail, email.TemplateData{
		"Name": user.Name,
		"Link": s.link("/verify-email", token),
	})
}

func (s *emailService) SendPasswordReset(ctx context.Context, user *models.User, token string, ttl time.Duration) {
	s.send(ctx, user, "Reset your password", email.TemplatePasswordReset, email.TemplateData{
		"Name":      user.Name,
		"Link":      s.link("/reset-password", token),
		"ExpiresIn": ttl.String(),
	})
}

func (s *emailService) SendSubscriptionChanged(ctx context.Context, user *models.User) {
	data := email.TemplateData{
		"Name":   user.Name,
		"Tier":   string(user.SubscriptionTier),
		"Status": string(user.SubscriptionStatus),
	}
	if user.SubscriptionExpiresAt != nil {
		data["ExpiresAt"] = user.SubscriptionExpiresAt.Format("2006-01-02")
	}
	s.send(ctx, user, "Your subscription has changed", email.TemplateSubscriptionChanged, data)
}

func (s *emailService) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.baseURL, path, url.QueryEscape(token))
}

func (s *emailService) send(ctx context.Context, user *models.User, subject, tpl string, data email.TemplateData) {
	if s.provider == nil || user == nil || user.Email == "" {
		return
	}

	// запрос завершится раньше письма, отменять отправку вместе с ним нельзя
	ctx = context.WithoutCancel(ctx)
	to := user.Email

	s.dispatch(func() {
		html, err := s.templates.Render(tpl, data)
		if err != nil {
			logger.CtxError(ctx, "Failed to render email", "template", tpl, "error", err)
			return
		}
		msg := &email.Email{To: []string{to}, Subject: subject, HTMLBody: html}
		if err := s.provider.Send(ctx, msg); err != nil {
			logger.CtxError(ctx, "Failed to send email", "provider", s.provider.Name(), "template", tpl, "error", err)
			return
		}
		logger.CtxDebug(ctx, "Email sent", "template", tpl)
	})
}
