package services

import (
	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/repositories"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	UserService         UserService
	CVService           CVService
	ExportService       ExportService
	SubscriptionService SubscriptionService
	EmailService        EmailService
}

// Repositories - набор репозиториев, общий для всех сервисов
type Repositories struct {
	Users         repositories.UserRepository
	CVs           repositories.CVRepository
	WebhookEvents repositories.WebhookEventRepository
}

func NewRepositories() Repositories {
	return Repositories{
		Users:         repositories.NewUserRepository(),
		CVs:           repositories.NewCVRepository(),
		WebhookEvents: repositories.NewWebhookEventRepository(),
	}
}

// Dependencies - инфраструктура, собранная в app
type Dependencies struct {
	Repos   Repositories
	Tokens  *auth.TokenManager
	Policy  auth.PlanPolicy
	Auth    AuthConfig
	Mailer  EmailService
	Fetcher JobDescriptionFetcher
	Cache   Cache
	Files   FileStore
	HTML    HTMLRenderer
	PDF     PDFRenderer
	BaseURL string
}

// NewServiceContainer собирает сервисы из зависимостей
func NewServiceContainer(d Dependencies) *ServiceContainer {
	return &ServiceContainer{
		AuthService:         NewAuthService(d.Repos.Users, d.Tokens, d.Mailer, d.Auth),
		UserService:         NewUserService(d.Repos.Users, d.Repos.CVs, d.Policy, d.Files),
		CVService:           NewCVService(d.Repos.CVs, d.Repos.Users, d.Policy, d.Fetcher, d.Cache, d.Files, d.BaseURL),
		ExportService:       NewExportService(d.Repos.CVs, d.HTML, d.PDF, d.Files),
		SubscriptionService: NewSubscriptionService(d.Repos.Users, d.Repos.WebhookEvents, d.Policy, d.Cache, d.Mailer),
		EmailService:        d.Mailer,
	}
}
