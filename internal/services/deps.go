package services

import (
	"context"
	"io"
	"time"

	"cvbuilder_backend/internal/models"
)

// Внешние зависимости сервисов. Реализации: internal/scraper, internal/renderer,
// internal/cache, internal/storage. В тестах подменяются фейками.

type JobDescriptionFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTMLRenderer interface {
	Render(cv *models.CV, template models.CVTemplate) (string, error)
}

type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// FileStore - подмножество storage.Storage, нужное сервисам
type FileStore interface {
	Save(ctx context.Context, path string, reader io.Reader, contentType string) error
	Delete(ctx context.Context, path string) error
	GetURL(ctx context.Context, path string) (string, error)
}

// Clock возвращает текущее время; в тестах фиксируется
type Clock func() time.Time
