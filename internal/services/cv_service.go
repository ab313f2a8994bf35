package services

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvbuilder_backend/internal/algorithms"
	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/cache"
	"cvbuilder_backend/internal/imageprocessor"
	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/repositories"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/storage"
	"cvbuilder_backend/pkg/apperrors"
)

const jobDescriptionTTL = 24 * time.Hour

type CVService interface {
	ListCVs(ctx context.Context, db *gorm.DB, userID string) (*dto.CVListResponse, error)
	GetCV(ctx context.Context, db *gorm.DB, userID, cvID string) (*dto.CVResponse, error)
	CreateCV(ctx context.Context, db *gorm.DB, userID string, req *dto.CreateCVRequest) (*dto.CVResponse, error)
	UpdateCV(ctx context.Context, db *gorm.DB, userID, cvID string, req *dto.UpdateCVRequest) (*dto.CVResponse, error)
	DeleteCV(ctx context.Context, db *gorm.DB, userID, cvID string) error
	DuplicateCV(ctx context.Context, db *gorm.DB, userID, cvID string) (*dto.CVResponse, error)
	AnalyzeCV(ctx context.Context, db *gorm.DB, userID, cvID string, req *dto.AnalyzeCVRequest) (*dto.ATSAnalysisResponse, error)
	ShareCV(ctx context.Context, db *gorm.DB, userID, cvID string, req *dto.ShareCVRequest) (*dto.ShareCVResponse, error)
	UploadPhoto(ctx context.Context, db *gorm.DB, userID, cvID string, data []byte) (*dto.CVResponse, error)
	DeletePhoto(ctx context.Context, db *gorm.DB, userID, cvID string) (*dto.CVResponse, error)
	GetSharedCV(ctx context.Context, db *gorm.DB, token string) (*dto.CVResponse, error)
}

type cvService struct {
	cvRepo   repositories.CVRepository
	userRepo repositories.UserRepository
	policy   auth.PlanPolicy
	fetcher  JobDescriptionFetcher
	cache    Cache
	files    FileStore
	photos   *imageprocessor.Processor
	baseURL  string
	now      Clock
}

func NewCVService(
	cvRepo repositories.CVRepository,
	userRepo repositories.UserRepository,
	policy auth.PlanPolicy,
	fetcher JobDescriptionFetcher,
	jdCache Cache,
	files FileStore,
	baseURL string,
) CVService {
	return &cvService{
		cvRepo:   cvRepo,
		userRepo: userRepo,
		policy:   policy,
		fetcher:  fetcher,
		cache:    jdCache,
		files:    files,
		photos:   imageprocessor.NewProcessor(85),
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

// loadOwned - 404 если резюме нет, 403 если оно чужое
func loadOwned(db *gorm.DB, repo repositories.CVRepository, userID, cvID string) (*models.CV, error) {
	cv, err := repo.FindByID(db, cvID)
	if err != nil {
		if errors.Is(err, repositories.ErrCVNotFound) {
			return nil, apperrors.ErrCVNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if cv.UserID != userID {
		return nil, apperrors.ErrCVForbidden
	}
	return cv, nil
}

func (s *cvService) ListCVs(ctx context.Context, db *gorm.DB, userID string) (*dto.CVListResponse, error) {
	cvs, err := s.cvRepo.FindByUser(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	out := make([]*dto.CVResponse, 0, len(cvs))
	for i := range cvs {
		out = append(out, dto.NewCVResponse(&cvs[i]))
	}
	return &dto.CVListResponse{CVs: out, Count: len(out)}, nil
}

func (s *cvService) GetCV(ctx context.Context, db *gorm.DB, userID, cvID string) (*dto.CVResponse, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}
	return dto.NewCVResponse(cv), nil
}

func (s *cvService) CreateCV(ctx context.Context, db *gorm.DB, userID string, req *dto.CreateCVRequest) (*dto.CVResponse, error) {
	template := req.Template
	if template == "" {
		template = models.TemplateModern
	}

	cv := &models.CV{
		UserID:   userID,
		Title:    strings.TrimSpace(req.Title),
		Template: template,
		Metadata: datatypes.NewJSONType(models.CVMetadata{
			TargetJob:     req.TargetJob,
			TargetCompany: req.TargetCompany,
		}),
		Privacy: datatypes.NewJSONType(models.CVPrivacy{}),
	}
	applyContent(cv, &req.CVContent)

	if err := s.createWithinLimit(db, cv); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "CV created", "cv_id", cv.ID, "template", cv.Template)
	return dto.NewCVResponse(cv), nil
}

// createWithinLimit - лимит считается по тарифу владельца, проверка и вставка атомарны в репозитории
func (s *cvService) createWithinLimit(db *gorm.DB, cv *models.CV) error {
	user, err := s.userRepo.FindByID(db, cv.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.InternalError(err)
	}

	limit := s.policy.CVLimit(user, s.now())
	if err := s.cvRepo.CreateWithinLimit(db, cv, limit); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCVLimitReached):
			return apperrors.ErrCVLimitReached.WithDetails(map[string]interface{}{"limit": limit})
		case errors.Is(err, repositories.ErrUserNotFound):
			return apperrors.ErrUserNotFound
		default:
			return apperrors.InternalError(err)
		}
	}
	return nil
}

// UpdateCV меняет только переданные поля из белого списка
func (s *cvService) UpdateCV(ctx context.Context, db *gorm.DB, userID, cvID string, req *dto.UpdateCVRequest) (*dto.CVResponse, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}

	fields := contentFields(&req.CVContent, cv.PersonalInfo.Data().PhotoURL)
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Template != nil {
		fields["template"] = *req.Template
	}
	if req.TargetJob != nil || req.TargetCompany != nil {
		md := cv.Metadata.Data()
		if req.TargetJob != nil {
			md.TargetJob = *req.TargetJob
		}
		if req.TargetCompany != nil {
			md.TargetCompany = *req.TargetCompany
		}
		fields["metadata"] = datatypes.NewJSONType(md)
	}

	if len(fields) == 0 {
		return dto.NewCVResponse(cv), nil
	}

	if err := s.cvRepo.UpdateFields(db, cvID, fields); err != nil {
		if errors.Is(err, repositories.ErrCVNotFound) {
			return nil, apperrors.ErrCVNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	updated, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}
	return dto.NewCVResponse(updated), nil
}

func (s *cvService) DeleteCV(ctx context.Context, db *gorm.DB, userID, cvID string) error {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return err
	}

	if err := s.cvRepo.Delete(db, cvID); err != nil {
		if errors.Is(err, repositories.ErrCVNotFound) {
			return apperrors.ErrCVNotFound
		}
		return apperrors.InternalError(err)
	}

	md := cv.Metadata.Data()
	s.deleteFile(ctx, cvID, md.PDFKey)
	s.deleteFile(ctx, cvID, md.PhotoKey)

	logger.CtxInfo(ctx, "CV deleted", "cv_id", cvID)
	return nil
}

// DuplicateCV копирует содержимое; копия считается в лимит тарифа
func (s *cvService) DuplicateCV(ctx context.Context, db *gorm.DB, userID, cvID string) (*dto.CVResponse, error) {
	src, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}

	srcMeta := src.Metadata.Data()
	// файл фото принадлежит оригиналу
	srcInfo := src.PersonalInfo.Data()
	srcInfo.PhotoURL = ""
	dup := &models.CV{
		UserID:         userID,
		Title:          src.Title + " (Copy)",
		Template:       src.Template,
		PersonalInfo:   datatypes.NewJSONType(srcInfo),
		Summary:        src.Summary,
		WorkExperience: src.WorkExperience,
		Education:      src.Education,
		Skills:         src.Skills,
		Languages:      src.Languages,
		Projects:       src.Projects,
		Certifications: src.Certifications,
		CustomSections: src.CustomSections,
		References:     src.References,
		Metadata: datatypes.NewJSONType(models.CVMetadata{
			TargetJob:     srcMeta.TargetJob,
			TargetCompany: srcMeta.TargetCompany,
		}),
		Privacy: datatypes.NewJSONType(models.CVPrivacy{}),
	}

	if err := s.createWithinLimit(db, dup); err != nil {
		return nil, err
	}
	return dto.NewCVResponse(dup), nil
}

// AnalyzeCV - ATS-анализ, только для платных тарифов
func (s *cvService) AnalyzeCV(ctx context.Context, db *gorm.DB, userID, cvID string, req *dto.AnalyzeCVRequest) (*dto.ATSAnalysisResponse, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	now := s.now()
	if !s.policy.CanAnalyze(user, now) {
		return nil, apperrors.ErrPremiumRequired
	}

	jd, err := s.jobDescription(ctx, req)
	if err != nil {
		return nil, err
	}

	result := algorithms.CalculateATSScore(cv, jd)

	md := cv.Metadata.Data()
	score := result.Score
	md.ATSScore = &score
	md.KeywordMatches = result.KeywordMatches
	md.MissingKeywords = result.MissingKeywords
	md.LastAnalyzedAt = &now
	if req.TargetJob != "" {
		md.TargetJob = req.TargetJob
	}
	if req.TargetCompany != "" {
		md.TargetCompany = req.TargetCompany
	}

	if err := s.cvRepo.UpdateMetadata(db, cvID, md); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "CV analyzed", "cv_id", cvID, "score", result.Score, "keywords", result.TotalKeywords)
	return &dto.ATSAnalysisResponse{
		CVID:            cvID,
		ATSScore:        result.Score,
		KeywordMatches:  result.KeywordMatches,
		MissingKeywords: result.MissingKeywords,
		TotalKeywords:   result.TotalKeywords,
		AnalyzedAt:      now,
	}, nil
}

// jobDescription берет текст из запроса или загружает по URL (с кэшем)
func (s *cvService) jobDescription(ctx context.Context, req *dto.AnalyzeCVRequest) (string, error) {
	if text := strings.TrimSpace(req.JobDescription); text != "" {
		return text, nil
	}
	if req.JobURL == "" {
		return "", apperrors.ErrJobDescriptionRequired
	}
	if s.fetcher == nil {
		return "", apperrors.ErrJobDescriptionFetch
	}

	key := cache.JobDescriptionKey(req.JobURL)
	if s.cache != nil {
		var cached string
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit && cached != "" {
			return cached, nil
		}
	}

	text, err := s.fetcher.Fetch(ctx, req.JobURL)
	if err != nil {
		logger.CtxWarn(ctx, "Job description fetch failed", "url", req.JobURL, "error", err)
		return "", apperrors.ErrJobDescriptionFetch.WithError(err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, text, jobDescriptionTTL); err != nil {
			logger.CtxDebug(ctx, "Job description not cached", "error", err)
		}
	}
	return text, nil
}

// ShareCV включает или выключает публичную ссылку
func (s *cvService) ShareCV(ctx context.Context, db *gorm.DB, userID, cvID string, req *dto.ShareCVRequest) (*dto.ShareCVResponse, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}

	privacy := models.CVPrivacy{IsPublic: req.IsPublic}
	var shareToken *string
	if req.IsPublic {
		token := cv.Privacy.Data().ShareableLink
		if token == "" {
			token = uuid.NewString()
		}
		privacy.ShareableLink = token
		if req.ExpiresInDays > 0 {
			exp := s.now().AddDate(0, 0, req.ExpiresInDays)
			privacy.ShareExpiresAt = &exp
		}
		shareToken = &token
	}

	err = s.cvRepo.UpdateFields(db, cvID, map[string]interface{}{
		"privacy":     datatypes.NewJSONType(privacy),
		"share_token": shareToken,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrCVNotFound) {
			return nil, apperrors.ErrCVNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.ShareCVResponse{IsPublic: privacy.IsPublic, ShareExpiresAt: privacy.ShareExpiresAt}
	if privacy.IsPublic {
		resp.ShareToken = privacy.ShareableLink
		resp.ShareURL = s.baseURL + "/api/public/cv/" + privacy.ShareableLink
	}
	return resp, nil
}

// GetSharedCV - публичный просмотр без авторизации. Владелец и метаданные анализа скрыты.
func (s *cvService) GetSharedCV(ctx context.Context, db *gorm.DB, token string) (*dto.CVResponse, error) {
	cv, err := s.cvRepo.FindByShareToken(db, token)
	if err != nil {
		if errors.Is(err, repositories.ErrCVNotFound) {
			return nil, apperrors.ErrShareLinkNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if !cv.IsSharedAt(s.now()) {
		return nil, apperrors.ErrShareLinkNotFound
	}

	resp := dto.NewCVResponse(cv)
	resp.UserID = ""
	resp.Metadata = models.CVMetadata{}
	return resp, nil
}

// UploadPhoto нормализует фото и кладет его в хранилище; старый файл удаляется
func (s *cvService) UploadPhoto(ctx context.Context, db *gorm.DB, userID, cvID string, data []byte) (*dto.CVResponse, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}
	if len(data) > imageprocessor.MaxUploadSize {
		return nil, apperrors.ErrPhotoTooLarge.WithDetails(map[string]interface{}{"maxBytes": imageprocessor.MaxUploadSize})
	}
	if s.files == nil {
		return nil, apperrors.InternalError(errors.New("file storage is not configured"))
	}

	photo, err := s.photos.ProcessPhoto(data)
	if err != nil {
		return nil, apperrors.ErrInvalidPhoto.WithError(err)
	}

	key := storage.PhotoKey(userID, cvID, strconv.FormatInt(s.now().UnixNano(), 36))
	if err := s.files.Save(ctx, key, bytes.NewReader(photo), "image/jpeg"); err != nil {
		return nil, apperrors.InternalError(err)
	}
	url, err := s.files.GetURL(ctx, key)
	if err != nil {
		s.deleteFile(ctx, cvID, key)
		return nil, apperrors.InternalError(err)
	}

	info := cv.PersonalInfo.Data()
	info.PhotoURL = url
	md := cv.Metadata.Data()
	oldKey := md.PhotoKey
	md.PhotoKey = key

	err = s.cvRepo.UpdateFields(db, cvID, map[string]interface{}{
		"personal_info": datatypes.NewJSONType(info),
		"metadata":      datatypes.NewJSONType(md),
	})
	if err != nil {
		s.deleteFile(ctx, cvID, key)
		if errors.Is(err, repositories.ErrCVNotFound) {
			return nil, apperrors.ErrCVNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	s.deleteFile(ctx, cvID, oldKey)

	logger.CtxInfo(ctx, "CV photo uploaded", "cv_id", cvID, "bytes", len(photo))
	return s.GetCV(ctx, db, userID, cvID)
}

func (s *cvService) DeletePhoto(ctx context.Context, db *gorm.DB, userID, cvID string) (*dto.CVResponse, error) {
	cv, err := loadOwned(db, s.cvRepo, userID, cvID)
	if err != nil {
		return nil, err
	}
	md := cv.Metadata.Data()
	if md.PhotoKey == "" {
		return dto.NewCVResponse(cv), nil
	}

	info := cv.PersonalInfo.Data()
	info.PhotoURL = ""
	oldKey := md.PhotoKey
	md.PhotoKey = ""

	err = s.cvRepo.UpdateFields(db, cvID, map[string]interface{}{
		"personal_info": datatypes.NewJSONType(info),
		"metadata":      datatypes.NewJSONType(md),
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	s.deleteFile(ctx, cvID, oldKey)
	return s.GetCV(ctx, db, userID, cvID)
}

// deleteFile - ошибки хранилища не роняют операцию, файл останется сиротой
func (s *cvService) deleteFile(ctx context.Context, cvID, key string) {
	if key == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		logger.CtxWarn(ctx, "Failed to delete stored file", "cv_id", cvID, "key", key, "error", err)
	}
}

// applyContent заполняет разделы нового резюме из запроса
func applyContent(cv *models.CV, c *dto.CVContent) {
	if c.PersonalInfo != nil {
		pi := *c.PersonalInfo
		pi.PhotoURL = ""
		cv.PersonalInfo = datatypes.NewJSONType(pi)
	}
	if c.Summary != nil {
		cv.Summary = *c.Summary
	}
	if c.WorkExperience != nil {
		cv.WorkExperience = *c.WorkExperience
	}
	if c.Education != nil {
		cv.Education = *c.Education
	}
	if c.Skills != nil {
		cv.Skills = *c.Skills
	}
	if c.Languages != nil {
		cv.Languages = *c.Languages
	}
	if c.Projects != nil {
		cv.Projects = *c.Projects
	}
	if c.Certifications != nil {
		cv.Certifications = *c.Certifications
	}
	if c.CustomSections != nil {
		cv.CustomSections = *c.CustomSections
	}
	if c.References != nil {
		cv.References = *c.References
	}
}

// contentFields - колонки для частичного обновления, только непустые указатели.
// photoURL выставляет только загрузка фото.
func contentFields(c *dto.CVContent, photoURL string) map[string]interface{} {
	fields := map[string]interface{}{}
	if c.PersonalInfo != nil {
		pi := *c.PersonalInfo
		pi.PhotoURL = photoURL
		fields["personal_info"] = datatypes.NewJSONType(pi)
	}
	if c.Summary != nil {
		fields["summary"] = *c.Summary
	}
	if c.WorkExperience != nil {
		fields["work_experience"] = datatypes.NewJSONSlice(*c.WorkExperience)
	}
	if c.Education != nil {
		fields["education"] = datatypes.NewJSONSlice(*c.Education)
	}
	if c.Skills != nil {
		fields["skills"] = datatypes.NewJSONSlice(*c.Skills)
	}
	if c.Languages != nil {
		fields["languages"] = datatypes.NewJSONSlice(*c.Languages)
	}
	if c.Projects != nil {
		fields["projects"] = datatypes.NewJSONSlice(*c.Projects)
	}
	if c.Certifications != nil {
		fields["certifications"] = datatypes.NewJSONSlice(*c.Certifications)
	}
	if c.CustomSections != nil {
		fields["custom_sections"] = datatypes.NewJSONSlice(*c.CustomSections)
	}
	if c.References != nil {
		fields["cv_references"] = datatypes.NewJSONSlice(*c.References)
	}
	return fields
}
