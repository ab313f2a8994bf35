package repositories

import (
	"errors"

	"cvbuilder_backend/internal/models"

	"gorm.io/gorm"
)

var ErrEventAlreadyProcessed = errors.New("webhook event already processed")

type WebhookEventRepository interface {
	// ApplyOnce регистрирует событие и выполняет apply в одной транзакции.
	// Повторное событие возвращает ErrEventAlreadyProcessed без вызова apply.
	ApplyOnce(db *gorm.DB, event *models.ProcessedWebhookEvent, apply func(tx *gorm.DB) error) error
	Exists(db *gorm.DB, eventID string) (bool, error)
}

type WebhookEventRepositoryImpl struct{}

func NewWebhookEventRepository() WebhookEventRepository {
	return &WebhookEventRepositoryImpl{}
}

func (r *WebhookEventRepositoryImpl) ApplyOnce(db *gorm.DB, event *models.ProcessedWebhookEvent, apply func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrEventAlreadyProcessed
			}
			return err
		}
		return apply(tx)
	})
}

func (r *WebhookEventRepositoryImpl) Exists(db *gorm.DB, eventID string) (bool, error) {
	var count int64
	err := db.Model(&models.ProcessedWebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}
