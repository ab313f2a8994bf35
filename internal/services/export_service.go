package services

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/repositories"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/storage"
	"cvbuilder_backend/pkg/apperrors"
)

// ExportService - предпросмотр HTML и серверная генерация PDF
type ExportService interface {
	RenderHTML(ctx context.Context, db *gorm.DB, userID, cvID string, template models.CVTemplate) (string, error)
	RenderPDF(ctx context.Context, db *gorm.DB, userID, cvID string, template models.CVTemplate) (*dto.PDFExport, error)
}

type exportService struct {
	cvRepo repositories.CVRepository
	html   HTMLRenderer
	pdf    PDFRenderer
	files  FileStore
	now    Clock
}

func NewExportService(cvRepo repositories.CVRepository, html HTMLRenderer, pdf PDFRenderer, files FileStore) ExportService {
	return &exportService{
		cvRepo: cvRepo,
		html:   html,
		pdf:    pdf,
		files:  files,
		now:    time.Now,
	}
}

func (s *exportService) RenderHTML(ctx context.Context, db *gorm.DB, userID, cvID string, template models.CVTemplate) (string, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return "", err
	}
	html, err := s.html.Render(cv, template)
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	return html, nil
}

// RenderPDF печатает резюме через headless Chrome и сохраняет копию в хранилище.
// Если Chrome недоступен - 503, клиент собирает PDF сам.
func (s *exportService) RenderPDF(ctx context.Context, db *gorm.DB, userID, cvID string, template models.CVTemplate) (*dto.PDFExport, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}
	if s.pdf == nil {
		return nil, apperrors.ErrPDFUnavailable
	}

	html, err := s.html.Render(cv, template)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	data, err := s.pdf.RenderHTMLToPDF(ctx, html)
	if err != nil {
		logger.CtxWarn(ctx, "Server-side PDF failed", "cv_id", cvID, "error", err)
		return nil, apperrors.ErrPDFUnavailable.WithError(err)
	}

	export := &dto.PDFExport{FileName: pdfFileName(cv.Title), Data: data}
	md := cv.Metadata.Data()
	now := s.now()
	md.LastGenerated = &now

	if s.files != nil {
		key := storage.PDFKey(userID, cvID)
		if err := s.files.Save(ctx, key, bytes.NewReader(data), "application/pdf"); err != nil {
			logger.CtxWarn(ctx, "Failed to store PDF", "cv_id", cvID, "error", err)
		} else {
			md.PDFKey = key
			if url, err := s.files.GetURL(ctx, key); err == nil {
				export.URL = url
			}
		}
	}

	if err := s.cvRepo.UpdateMetadata(db, cvID, md); err != nil {
		logger.CtxWarn(ctx, "Failed to update lastGenerated", "cv_id", cvID, "error", err)
	}
	return export, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func pdfFileName(title string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_")
	if name == "" {
		name = "cv"
	}
	return name + ".pdf"
}
