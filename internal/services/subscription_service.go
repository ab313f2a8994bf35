package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/cache"
	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/repositories"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/validator"
	"cvbuilder_backend/pkg/apperrors"
)

// Типы событий платежного провайдера
const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionRenewed   = "subscription.renewed"
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionExpired   = "subscription.expired"
	EventPaymentFailed         = "payment.failed"

	WebhookStatusProcessed = "processed"
	WebhookStatusDuplicate = "duplicate"

	webhookDedupTTL = 24 * time.Hour
)

const webhookEventSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "type", "data"],
  "properties": {
    "id":   {"type": "string", "minLength": 1, "maxLength": 128},
    "type": {"type": "string", "minLength": 1},
    "data": {
      "type": "object",
      "required": ["userId"],
      "properties": {
        "userId":    {"type": "string", "minLength": 1},
        "plan":      {"type": "string", "enum": ["monthly", "yearly"]},
        "tier":      {"type": "string", "enum": ["free", "premium", "enterprise"]},
        "expiresAt": {"type": "string", "format": "date-time"}
      }
    }
  }
}`

var webhookSchema = validator.NewJSONSchema(webhookEventSchema)

type SubscriptionService interface {
	GetSubscription(ctx context.Context, db *gorm.DB, userID string) (*dto.SubscriptionResponse, error)
	Subscribe(ctx context.Context, db *gorm.DB, userID string, req *dto.SubscribeRequest) (*dto.SubscriptionResponse, error)
	Cancel(ctx context.Context, db *gorm.DB, userID string) (*dto.SubscriptionResponse, error)
	// HandleWebhook применяет событие провайдера ровно один раз
	HandleWebhook(ctx context.Context, db *gorm.DB, payload []byte) (*dto.WebhookResult, error)
	// ExpireSubscriptions переводит истекшие подписки на free
	ExpireSubscriptions(ctx context.Context, db *gorm.DB) (int64, error)
}

type subscriptionService struct {
	userRepo  repositories.UserRepository
	eventRepo repositories.WebhookEventRepository
	policy    auth.PlanPolicy
	dedup     Cache
	mailer    EmailService
	now       Clock
}

func NewSubscriptionService(
	userRepo repositories.UserRepository,
	eventRepo repositories.WebhookEventRepository,
	policy auth.PlanPolicy,
	dedup Cache,
	mailer EmailService,
) SubscriptionService {
	return &subscriptionService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		policy:    policy,
		dedup:     dedup,
		mailer:    mailer,
		now:       time.Now,
	}
}

func (s *subscriptionService) getUser(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, db *gorm.DB, userID string) (*dto.SubscriptionResponse, error) {
	user, err := s.getUser(db, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(user, s.now()), nil
}

// Subscribe - срок считается календарно: +1 месяц или +1 год от текущего момента
func (s *subscriptionService) Subscribe(ctx context.Context, db *gorm.DB, userID string, req *dto.SubscribeRequest) (*dto.SubscriptionResponse, error) {
	user, err := s.getUser(db, userID)
	if err != nil {
		return nil, err
	}

	tier := req.Tier
	if tier == "" {
		tier = models.TierPremium
	}
	if tier == models.TierFree || !tier.IsValid() {
		return nil, apperrors.ErrInvalidPlan
	}
	now := s.now()
	expiresAt, err := periodEnd(now, req.Plan)
	if err != nil {
		return nil, err
	}

	err = s.userRepo.UpdateFields(db, userID, map[string]interface{}{
		"subscription_tier":       tier,
		"subscription_status":     models.SubscriptionStatusActive,
		"subscription_plan":       req.Plan,
		"subscription_expires_at": expiresAt,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user.SubscriptionTier = tier
	user.SubscriptionStatus = models.SubscriptionStatusActive
	user.SubscriptionPlan = req.Plan
	user.SubscriptionExpiresAt = &expiresAt

	logger.CtxInfo(ctx, "Subscribed", "user_id", userID, "tier", tier, "plan", req.Plan)
	if s.mailer != nil {
		s.mailer.SendSubscriptionChanged(ctx, user)
	}

	resp := s.toResponse(user, now)
	resp.Message = fmt.Sprintf("Subscribed to %s (%s) until %s", tier, req.Plan, expiresAt.Format("2006-01-02"))
	return resp, nil
}

// Cancel - тариф сохраняется до конца оплаченного периода, понижение делает воркер
func (s *subscriptionService) Cancel(ctx context.Context, db *gorm.DB, userID string) (*dto.SubscriptionResponse, error) {
	user, err := s.getUser(db, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !user.HasPremium(now) || user.SubscriptionStatus != models.SubscriptionStatusActive {
		return nil, apperrors.ErrSubscriptionNotActive
	}

	err = s.userRepo.UpdateFields(db, userID, map[string]interface{}{
		"subscription_status": models.SubscriptionStatusCancelled,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	user.SubscriptionStatus = models.SubscriptionStatusCancelled

	logger.CtxInfo(ctx, "Subscription cancelled", "user_id", userID)
	if s.mailer != nil {
		s.mailer.SendSubscriptionChanged(ctx, user)
	}

	resp := s.toResponse(user, now)
	if user.SubscriptionExpiresAt != nil {
		resp.Message = "Subscription cancelled. Premium features remain available until " +
			user.SubscriptionExpiresAt.Format("2006-01-02")
	} else {
		resp.Message = "Subscription cancelled"
	}
	return resp, nil
}

func (s *subscriptionService) HandleWebhook(ctx context.Context, db *gorm.DB, payload []byte) (*dto.WebhookResult, error) {
	if err := webhookSchema.ValidateBytes(payload); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return nil, apperrors.ValidationError(verr.Errors)
		}
		return nil, apperrors.InternalError(err)
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperrors.NewBadRequestError("Malformed webhook payload")
	}
	if !knownWebhookEvent(event.Type) {
		return nil, apperrors.ErrUnknownWebhookEvent
	}

	result := &dto.WebhookResult{Status: WebhookStatusProcessed, EventID: event.ID}
	ctx = logger.WithUserID(ctx, event.Data.UserID)

	// Быстрый путь через redis; источник истины - таблица processed_webhook_events
	dedupKey := cache.WebhookEventKey(event.ID)
	if s.dedup != nil {
		fresh, err := s.dedup.SetIfNotExists(ctx, dedupKey, "1", webhookDedupTTL)
		if err == nil && !fresh {
			// ключ мог остаться от незавершенной доставки, ответ дает только база
			done, err := s.eventRepo.Exists(db, event.ID)
			if err != nil {
				return nil, apperrors.InternalError(err)
			}
			if done {
				logger.CtxInfo(ctx, "Duplicate webhook event", "event_id", event.ID, "source", "cache")
				result.Status = WebhookStatusDuplicate
				return result, nil
			}
		}
	}

	var updated *models.User
	record := &models.ProcessedWebhookEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		UserID:      event.Data.UserID,
		ProcessedAt: s.now(),
	}
	err := s.eventRepo.ApplyOnce(db, record, func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByID(tx, event.Data.UserID)
		if err != nil {
			return err
		}
		fields, err := s.webhookFields(user, &event)
		if err != nil {
			return err
		}
		if err := s.userRepo.UpdateFields(tx, user.ID, fields); err != nil {
			return err
		}
		updated, err = s.userRepo.FindByID(tx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrEventAlreadyProcessed) {
			logger.CtxInfo(ctx, "Duplicate webhook event", "event_id", event.ID, "source", "db")
			result.Status = WebhookStatusDuplicate
			return result, nil
		}

		// событие не записано, повторная доставка должна пройти
		if s.dedup != nil {
			_ = s.dedup.Delete(ctx, dedupKey)
		}

		var appErr *apperrors.AppError
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, apperrors.ErrUserNotFound
		case errors.As(err, &appErr):
			return nil, appErr
		default:
			return nil, apperrors.InternalError(err)
		}
	}

	logger.CtxInfo(ctx, "Webhook event applied", "event_id", event.ID, "type", event.Type)
	if s.mailer != nil && updated != nil {
		s.mailer.SendSubscriptionChanged(ctx, updated)
	}
	return result, nil
}

// webhookFields - изменения пользователя для события
func (s *subscriptionService) webhookFields(user *models.User, event *dto.WebhookEvent) (map[string]interface{}, error) {
	now := s.now()
	data := event.Data

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionRenewed, EventSubscriptionUpdated:
		tier := data.Tier
		if tier == models.TierFree {
			if event.Type == EventSubscriptionUpdated {
				return downgradeFields(now), nil
			}
			return nil, apperrors.ErrInvalidWebhookTier
		}
		if tier == "" {
			tier = models.TierPremium
		}
		plan := data.Plan
		if plan == "" {
			plan = user.SubscriptionPlan
		}
		if plan == "" {
			plan = models.PlanMonthly
		}

		var expiresAt time.Time
		if data.ExpiresAt != nil {
			expiresAt = *data.ExpiresAt
		} else {
			// продление считается от текущего окончания, если оно еще впереди
			base := now
			if event.Type == EventSubscriptionRenewed && user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(now) {
				base = *user.SubscriptionExpiresAt
			}
			end, err := periodEnd(base, plan)
			if err != nil {
				return nil, err
			}
			expiresAt = end
		}

		return map[string]interface{}{
			"subscription_tier":       tier,
			"subscription_status":     models.SubscriptionStatusActive,
			"subscription_plan":       plan,
			"subscription_expires_at": expiresAt,
		}, nil

	case EventSubscriptionCancelled:
		return map[string]interface{}{
			"subscription_status": models.SubscriptionStatusCancelled,
		}, nil

	case EventSubscriptionExpired, EventPaymentFailed:
		return downgradeFields(now), nil
	}
	return nil, apperrors.ErrUnknownWebhookEvent
}

// downgradeFields - перевод на free с немедленным окончанием
func downgradeFields(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"subscription_tier":       models.TierFree,
		"subscription_status":     models.SubscriptionStatusExpired,
		"subscription_expires_at": now,
	}
}

func (s *subscriptionService) ExpireSubscriptions(ctx context.Context, db *gorm.DB) (int64, error) {
	n, err := s.userRepo.DowngradeExpired(db, s.now())
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *subscriptionService) toResponse(user *models.User, now time.Time) *dto.SubscriptionResponse {
	tier := user.EffectiveTier(now)
	status := user.SubscriptionStatus
	if tier == models.TierFree && user.SubscriptionTier != models.TierFree && user.SubscriptionTier != "" {
		status = models.SubscriptionStatusExpired
	}

	features := append([]string{}, auth.Features[tier]...)
	return &dto.SubscriptionResponse{
		Tier:      tier,
		Status:    status,
		Plan:      user.SubscriptionPlan,
		ExpiresAt: user.SubscriptionExpiresAt,
		IsActive:  user.HasPremium(now),
		CVLimit:   s.policy.CVLimit(user, now),
		Features:  features,
	}
}

func periodEnd(from time.Time, plan models.SubscriptionPlan) (time.Time, error) {
	switch plan {
	case models.PlanMonthly:
		return from.AddDate(0, 1, 0), nil
	case models.PlanYearly:
		return from.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, apperrors.ErrInvalidPlan
	}
}

func knownWebhookEvent(t string) bool {
	switch t {
	case EventSubscriptionCreated, EventSubscriptionRenewed, EventSubscriptionUpdated,
		EventSubscriptionCancelled, EventSubscriptionExpired, EventPaymentFailed:
		return true
	}
	return false
}
