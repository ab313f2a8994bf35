package models

import "time"

// ProcessedWebhookEvent - журнал обработанных событий платежного провайдера.
// Первичный ключ по EventID не дает применить одно событие дважды.
type ProcessedWebhookEvent struct {
	EventID     string    `gorm:"size:128;primaryKey" json:"eventId"`
	EventType   string    `gorm:"size:64;not null" json:"eventType"`
	UserID      string    `gorm:"type:varchar(36);index" json:"userId"`
	ProcessedAt time.Time `gorm:"not null" json:"processedAt"`
}
