package dto

import (
	"time"

	"cvbuilder_backend/internal/models"
)

// CV DTOs

type CVContent struct {
	PersonalInfo   *models.PersonalInfo     `json:"personalInfo"`
	Summary        *string                  `json:"summary" validate:"omitempty,max=5000"`
	WorkExperience *[]models.WorkExperience `json:"workExperience"`
	Education      *[]models.Education      `json:"education"`
	Skills         *[]models.Skill          `json:"skills"`
	Languages      *[]models.Language       `json:"languages"`
	Projects       *[]models.Project        `json:"projects"`
	Certifications *[]models.Certification  `json:"certifications"`
	CustomSections *[]models.CustomSection  `json:"customSections"`
	References     *[]models.Reference      `json:"references"`
}

type CreateCVRequest struct {
	Title    string            `json:"title" validate:"required,min=1,max=200"`
	Template models.CVTemplate `json:"template" validate:"omitempty,is-cv-template"`
	CVContent
	TargetJob     string `json:"targetJob" validate:"max=200"`
	TargetCompany string `json:"targetCompany" validate:"max=200"`
}

// UpdateCVRequest - частичное обновление: nil означает "не менять".
// Неизвестные поля (userId, id, metadata.atsScore...) игнорируются при биндинге.
type UpdateCVRequest struct {
	Title    *string            `json:"title" validate:"omitempty,min=1,max=200"`
	Template *models.CVTemplate `json:"template" validate:"omitempty,is-cv-template"`
	CVContent
	TargetJob     *string `json:"targetJob" validate:"omitempty,max=200"`
	TargetCompany *string `json:"targetCompany" validate:"omitempty,max=200"`
}

type AnalyzeCVRequest struct {
	JobDescription string `json:"jobDescription" validate:"required_without=JobURL,max=20000"`
	JobURL         string `json:"jobUrl" validate:"omitempty,url"`
	TargetJob      string `json:"targetJob" validate:"max=200"`
	TargetCompany  string `json:"targetCompany" validate:"max=200"`
}

type ShareCVRequest struct {
	IsPublic      bool `json:"isPublic"`
	ExpiresInDays int  `json:"expiresInDays" validate:"min=0,max=365"`
}

type CVResponse struct {
	ID             string                  `json:"id"`
	UserID         string                  `json:"userId"`
	Title          string                  `json:"title"`
	Template       models.CVTemplate       `json:"template"`
	PersonalInfo   models.PersonalInfo     `json:"personalInfo"`
	Summary        string                  `json:"summary"`
	WorkExperience []models.WorkExperience `json:"workExperience"`
	Education      []models.Education      `json:"education"`
	Skills         []models.Skill          `json:"skills"`
	Languages      []models.Language       `json:"languages"`
	Projects       []models.Project        `json:"projects"`
	Certifications []models.Certification  `json:"certifications"`
	CustomSections []models.CustomSection  `json:"customSections"`
	References     []models.Reference      `json:"references"`
	Metadata       models.CVMetadata       `json:"metadata"`
	Privacy        models.CVPrivacy        `json:"privacy"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

type CVListResponse struct {
	CVs   []*CVResponse `json:"cvs"`
	Count int           `json:"count"`
}

type ATSAnalysisResponse struct {
	CVID            string    `json:"cvId"`
	ATSScore        int       `json:"atsScore"`
	KeywordMatches  []string  `json:"keywordMatches"`
	MissingKeywords []string  `json:"missingKeywords"`
	TotalKeywords   int       `json:"totalKeywords"`
	AnalyzedAt      time.Time `json:"analyzedAt"`
}

type ShareCVResponse struct {
	IsPublic       bool       `json:"isPublic"`
	ShareToken     string     `json:"shareToken,omitempty"`
	ShareURL       string     `json:"shareUrl,omitempty"`
	ShareExpiresAt *time.Time `json:"shareExpiresAt,omitempty"`
}

// PDFExport - готовый PDF для отдачи клиенту
type PDFExport struct {
	FileName string
	Data     []byte
	URL      string
}

// NewCVResponse - плоское представление CV. Пустые списки отдаются как [], не null.
func NewCVResponse(cv *models.CV) *CVResponse {
	return &CVResponse{
		ID:             cv.ID,
		UserID:         cv.UserID,
		Title:          cv.Title,
		Template:       cv.Template,
		PersonalInfo:   cv.PersonalInfo.Data(),
		Summary:        cv.Summary,
		WorkExperience: nonNil(cv.WorkExperience),
		Education:      nonNil(cv.Education),
		Skills:         nonNil(cv.Skills),
		Languages:      nonNil(cv.Languages),
		Projects:       nonNil(cv.Projects),
		Certifications: nonNil(cv.Certifications),
		CustomSections: nonNil(cv.CustomSections),
		References:     nonNil(cv.References),
		Metadata:       cv.Metadata.Data(),
		Privacy:        cv.Privacy.Data(),
		CreatedAt:      cv.CreatedAt,
		UpdatedAt:      cv.UpdatedAt,
	}
}

func nonNil[T any, S ~[]T](s S) []T {
	if s == nil {
		return []T{}
	}
	return []T(s)
}
