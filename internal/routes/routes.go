package routes

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"cvbuilder_backend/internal/handlers"
	"cvbuilder_backend/internal/logger"
)

// Options - то, что маршрутам нужно помимо хэндлеров
type Options struct {
	RequireAuth     gin.HandlerFunc
	VerifyWebhook   gin.HandlerFunc
	FilesURLPrefix  string // "/files" для локального хранилища
	FilesDir        string
	EnableSwaggerUI bool
}

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(ginRouter *gin.Engine, appHandlers *handlers.AppHandlers, opts Options) {
	appHandlers.HealthHandler.RegisterRoutes(ginRouter)

	api := ginRouter.Group("/api")
	{
		appHandlers.AuthHandler.RegisterRoutes(api, opts.RequireAuth)
		appHandlers.CVHandler.RegisterRoutes(api, opts.RequireAuth)
		appHandlers.UserHandler.RegisterRoutes(api, opts.RequireAuth)
		appHandlers.SubscriptionHandler.RegisterRoutes(api, opts.RequireAuth, opts.VerifyWebhook)
	}

	if opts.FilesDir != "" && strings.HasPrefix(opts.FilesURLPrefix, "/") {
		ginRouter.Static(opts.FilesURLPrefix, opts.FilesDir)
		logger.Info("Serving stored files", "prefix", opts.FilesURLPrefix, "dir", opts.FilesDir)
	}

	if opts.EnableSwaggerUI {
		ginRouter.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
