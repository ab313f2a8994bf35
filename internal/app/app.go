package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvbuilder_backend/database"
	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/cache"
	"cvbuilder_backend/internal/config"
	"cvbuilder_backend/internal/email"
	"cvbuilder_backend/internal/handlers"
	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/middleware"
	"cvbuilder_backend/internal/renderer"
	"cvbuilder_backend/internal/routes"
	"cvbuilder_backend/internal/scraper"
	"cvbuilder_backend/internal/services"
	"cvbuilder_backend/internal/storage"
	"cvbuilder_backend/internal/validator"
	"cvbuilder_backend/internal/workers"
	"cvbuilder_backend/pkg/apperrors"
)

const shutdownTimeout = 10 * time.Second

func Run() {
	cfg := config.MustLoad()
	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)
	apperrors.SetDebug(cfg.IsDevelopment())
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Connect(database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SlowQuery:       cfg.Database.SlowQuery,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(gormDB); err != nil {
			logger.Fatal("Migration failed", "error", err)
		}
	}

	redisCache := cache.NewRedis(cfg.Redis.URL, cfg.Redis.TTL)
	defer redisCache.Close()

	files, err := newStorage(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	mailer, err := newEmailService(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize email", "error", err)
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	container, err := initializeServices(cfg, tokens, redisCache, files, mailer)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	router := SetupRouter(RouterConfig{
		Config:   cfg,
		DB:       gormDB,
		Services: container,
		Tokens:   tokens,
		Health:   redisCache,
		FilesDir: localFilesDir(files),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := workers.NewSubscriptionWorker(gormDB, container.SubscriptionService, cfg.Workers.SubscriptionInterval)
	worker.Start(ctx)

	listener, err := listenWithRetry(cfg.Server.Host, cfg.Server.Port, cfg.Server.PortRetries)
	if err != nil {
		logger.Fatal("Server startup error", "error", err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("Server starting on %s", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	worker.Wait()

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}

// RouterConfig - все, что нужно для сборки роутера. Используется и в тестах.
type RouterConfig struct {
	Config   *config.Config
	DB       *gorm.DB
	Services *services.ServiceContainer
	Tokens   *auth.TokenManager
	Health   handlers.Pinger
	FilesDir string
}

func SetupRouter(rc RouterConfig) *gin.Engine {
	appHandlers := initializeHandlers(rc.Services, rc.DB, rc.Health)
	ginRouter := initializeGinRouter(rc.DB, rc.Config.Server.CORSOrigins)

	routes.RegisterRoutes(ginRouter, appHandlers, routes.Options{
		RequireAuth:     middleware.AuthMiddleware(rc.Tokens),
		VerifyWebhook:   middleware.WebhookSignatureMiddleware(rc.Config.Webhook.Secret),
		FilesURLPrefix:  rc.Config.Storage.BaseURL,
		FilesDir:        rc.FilesDir,
		EnableSwaggerUI: rc.Config.IsDevelopment(),
	})

	return ginRouter
}

func initializeServices(
	cfg *config.Config,
	tokens *auth.TokenManager,
	cacheStore services.Cache,
	files storage.Storage,
	mailer services.EmailService,
) (*services.ServiceContainer, error) {
	htmlRenderer, err := renderer.NewHTMLRenderer()
	if err != nil {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	pdfRenderer := renderer.NewChromedpRenderer(renderer.PDFOptions{
		ChromePath:    cfg.PDF.ChromePath,
		Timeout:       cfg.PDF.Timeout,
		MaxConcurrent: cfg.PDF.MaxConcurrent,
		Disabled:      cfg.PDF.Disabled,
	})
	if cfg.PDF.Disabled {
		logger.Warn("Server-side PDF disabled, clients will render locally")
	}
	if cfg.Auth.ExposeResetToken && cfg.IsProduction() {
		logger.Warn("EXPOSE_RESET_TOKEN is ignored in production")
	}

	return services.NewServiceContainer(services.Dependencies{
		Repos:  services.NewRepositories(),
		Tokens: tokens,
		Policy: auth.NewPlanPolicy(cfg.Plans.FreeCVLimit),
		Auth: services.AuthConfig{
			ExposeResetToken: cfg.Auth.ExposeResetToken && !cfg.IsProduction(),
			ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
		},
		Mailer:  mailer,
		Fetcher: scraper.NewJobDescriptionFetcher(cfg.Scraper.UserAgent, cfg.Scraper.Timeout),
		Cache:   cacheStore,
		Files:   files,
		HTML:    htmlRenderer,
		PDF:     pdfRenderer,
		BaseURL: cfg.Server.BaseURL,
	}), nil
}

func initializeHandlers(container *services.ServiceContainer, db *gorm.DB, health handlers.Pinger) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, container.AuthService),
		CVHandler:           handlers.NewCVHandler(baseHandler, container.CVService, container.ExportService),
		UserHandler:         handlers.NewUserHandler(baseHandler, container.UserService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(baseHandler, container.SubscriptionService),
		HealthHandler:       handlers.NewHealthHandler(db, health),
	}
}

func initializeGinRouter(db *gorm.DB, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(corsOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		UseSSL:     cfg.Storage.UseSSL,
		PublicRead: cfg.Storage.PublicRead,
	})
}

func newEmailService(cfg *config.Config) (services.EmailService, error) {
	provider, err := email.NewProvider(email.Config{
		Provider:       cfg.Email.Provider,
		SMTPHost:       cfg.Email.SMTPHost,
		SMTPPort:       cfg.Email.SMTPPort,
		SMTPUsername:   cfg.Email.SMTPUsername,
		SMTPPassword:   cfg.Email.SMTPPassword,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		UseTLS:         cfg.Email.UseTLS,
		TemplatesDir:   cfg.Email.TemplatesDir,
	})
	if err != nil {
		return nil, err
	}
	templates, err := email.NewDefaultTemplateManager(cfg.Email.TemplatesDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Email provider initialized", "provider", provider.Name())
	return services.NewEmailService(provider, templates, cfg.Server.BaseURL, cfg.Plans.FreeCVLimit), nil
}

// localFilesDir - каталог для раздачи статикой; только для локального хранилища
func localFilesDir(s storage.Storage) string {
	if local, ok := s.(*storage.LocalStorage); ok {
		return local.BasePath()
	}
	return ""
}

// listenWithRetry слушает port, при EADDRINUSE пробует следующие retries портов
func listenWithRetry(host string, port, retries int) (net.Listener, error) {
	var lastErr error
	for i := 0; i <= retries; i++ {
		addr := net.JoinHostPort(host, fmt.Sprint(port+i))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if i > 0 {
				logger.Warn("Configured port busy, using next free port", "requested", port, "actual", port+i)
			}
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, err
		}
		logger.Warn("Port in use", "port", port+i)
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in range %d-%d: %w", port, port+retries, lastErr)
}
