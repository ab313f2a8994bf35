package models

import (
	"time"

	"gorm.io/datatypes"
)

// CV - резюме пользователя. Содержимое разделов хранится в JSON-колонках.
type CV struct {
	BaseModel
	UserID   string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	Title    string     `gorm:"size:200;not null" json:"title"`
	Template CVTemplate `gorm:"type:varchar(20);not null;default:'modern'" json:"template"`

	PersonalInfo   datatypes.JSONType[PersonalInfo]   `json:"personalInfo"`
	Summary        string                             `gorm:"type:text" json:"summary"`
	WorkExperience datatypes.JSONSlice[WorkExperience] `json:"workExperience"`
	Education      datatypes.JSONSlice[Education]      `json:"education"`
	Skills         datatypes.JSONSlice[Skill]          `json:"skills"`
	Languages      datatypes.JSONSlice[Language]       `json:"languages"`
	Projects       datatypes.JSONSlice[Project]        `json:"projects"`
	Certifications datatypes.JSONSlice[Certification]  `json:"certifications"`
	CustomSections datatypes.JSONSlice[CustomSection]  `json:"customSections"`
	References     datatypes.JSONSlice[Reference]      `gorm:"column:cv_references" json:"references"`

	Metadata datatypes.JSONType[CVMetadata] `json:"metadata"`
	Privacy  datatypes.JSONType[CVPrivacy]  `json:"privacy"`

	// Дублирует Privacy.ShareableLink для поиска по индексу
	ShareToken *string `gorm:"size:36;uniqueIndex" json:"-"`
}

type PersonalInfo struct {
	FullName string `json:"fullName"`
	JobTitle string `json:"jobTitle,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

type WorkExperience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Location     string   `json:"location,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	Current      bool     `json:"current,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	GPA         string `json:"gpa,omitempty"`
	Description string `json:"description,omitempty"`
}

type Skill struct {
	Name     string `json:"name"`
	Level    string `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
}

type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

type CustomSection struct {
	Title string              `json:"title"`
	Items []CustomSectionItem `json:"items,omitempty"`
}

type CustomSectionItem struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type Reference struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type CVMetadata struct {
	ATSScore        *int       `json:"atsScore,omitempty"`
	KeywordMatches  []string   `json:"keywordMatches,omitempty"`
	MissingKeywords []string   `json:"missingKeywords,omitempty"`
	LastAnalyzedAt  *time.Time `json:"lastAnalyzedAt,omitempty"`
	LastGenerated   *time.Time `json:"lastGenerated,omitempty"`
	TargetJob       string     `json:"targetJob,omitempty"`
	TargetCompany   string     `json:"targetCompany,omitempty"`
	PDFKey          string     `json:"pdfKey,omitempty"`
	PhotoKey        string     `json:"photoKey,omitempty"`
}

type CVPrivacy struct {
	IsPublic       bool       `json:"isPublic"`
	ShareableLink  string     `json:"shareableLink,omitempty"`
	ShareExpiresAt *time.Time `json:"shareExpiresAt,omitempty"`
}

// IsSharedAt - доступно ли резюме по публичной ссылке на момент now
func (c *CV) IsSharedAt(now time.Time) bool {
	p := c.Privacy.Data()
	if !p.IsPublic || p.ShareableLink == "" {
		return false
	}
	return p.ShareExpiresAt == nil || p.ShareExpiresAt.After(now)
}
