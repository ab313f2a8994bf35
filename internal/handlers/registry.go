package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	CVHandler           *CVHandler
	UserHandler         *UserHandler
	SubscriptionHandler *SubscriptionHandler
	HealthHandler       *HealthHandler
}
