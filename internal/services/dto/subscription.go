package dto

import (
	"time"

	"cvbuilder_backend/internal/models"
)

type SubscribeRequest struct {
	Plan models.SubscriptionPlan `json:"plan" validate:"required,is-subscription-plan"`
	Tier models.SubscriptionTier `json:"tier" validate:"omitempty,is-subscription-tier,ne=free"`
}

type SubscriptionResponse struct {
	Tier      models.SubscriptionTier   `json:"tier"`
	Status    models.SubscriptionStatus `json:"status"`
	Plan      models.SubscriptionPlan   `json:"plan,omitempty"`
	ExpiresAt *time.Time                `json:"expiresAt,omitempty"`
	IsActive  bool                      `json:"isActive"`
	CVLimit   int                       `json:"cvLimit"`
	Features  []string                  `json:"features"`
	Message   string                    `json:"message,omitempty"`
}

// WebhookEvent - событие платежного провайдера (структура проверяется JSON-схемой)
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	UserID    string                  `json:"userId"`
	Plan      models.SubscriptionPlan `json:"plan,omitempty"`
	Tier      models.SubscriptionTier `json:"tier,omitempty"`
	ExpiresAt *time.Time              `json:"expiresAt,omitempty"`
}

type WebhookResult struct {
	Status  string `json:"status"` // processed | duplicate
	EventID string `json:"eventId"`
}
