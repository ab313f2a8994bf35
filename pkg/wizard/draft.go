package wizard

import (
	"slices"

	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/validator"
)

const defaultTemplate = models.TemplateModern

// Draft - резюме, собираемое мастером
type Draft struct {
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
}

func NewDraft() Draft {
	return Draft{Template: defaultTemplate}
}

// FromCV - черновик для редактирования сохраненного резюме
func FromCV(cv *dto.CVResponse) Draft {
	return Draft{
		Title:          cv.Title,
		Template:       cv.Template,
		PersonalInfo:   cv.PersonalInfo,
		Summary:        cv.Summary,
		WorkExperience: cv.WorkExperience,
		Education:      cv.Education,
		Skills:         cv.Skills,
		Languages:      cv.Languages,
		Projects:       cv.Projects,
		Certifications: cv.Certifications,
		CustomSections: cv.CustomSections,
		References:     cv.References,
	}.clone()
}

func (d Draft) clone() Draft {
	d.WorkExperience = slices.Clone(d.WorkExperience)
	d.Education = slices.Clone(d.Education)
	d.Skills = slices.Clone(d.Skills)
	d.Languages = slices.Clone(d.Languages)
	d.Projects = slices.Clone(d.Projects)
	d.Certifications = slices.Clone(d.Certifications)
	d.CustomSections = slices.Clone(d.CustomSections)
	d.References = slices.Clone(d.References)

	// вложенные списки копируются тоже
	for i := range d.WorkExperience {
		d.WorkExperience[i].Achievements = slices.Clone(d.WorkExperience[i].Achievements)
	}
	for i := range d.Projects {
		d.Projects[i].Technologies = slices.Clone(d.Projects[i].Technologies)
	}
	for i := range d.CustomSections {
		d.CustomSections[i].Items = slices.Clone(d.CustomSections[i].Items)
	}
	return d
}

// CreateRequest - тело POST /api/cv
func (d Draft) CreateRequest() dto.CreateCVRequest {
	c := d.clone()
	return dto.CreateCVRequest{
		Title:     c.Title,
		Template:  c.Template,
		CVContent: c.content(),
	}
}

// UpdateRequest - тело PUT /api/cv/:id, заменяет все поля черновика
func (d Draft) UpdateRequest() dto.UpdateCVRequest {
	c := d.clone()
	return dto.UpdateCVRequest{
		Title:     &c.Title,
		Template:  &c.Template,
		CVContent: c.content(),
	}
}

func (d *Draft) content() dto.CVContent {
	return dto.CVContent{
		PersonalInfo:   &d.PersonalInfo,
		Summary:        &d.Summary,
		WorkExperience: &d.WorkExperience,
		Education:      &d.Education,
		Skills:         &d.Skills,
		Languages:      &d.Languages,
		Projects:       &d.Projects,
		Certifications: &d.Certifications,
		CustomSections: &d.CustomSections,
		References:     &d.References,
	}
}

// mergeStep переносит в черновик поля, которыми владеет шаг
func mergeStep(s Step, dst, src *Draft) {
	in := src.clone()
	switch s {
	case StepTemplate:
		dst.Template = in.Template
		dst.Title = in.Title
	case StepPersonalInfo:
		dst.PersonalInfo = in.PersonalInfo
	case StepSummary:
		dst.Summary = in.Summary
	case StepWorkExperience:
		dst.WorkExperience = in.WorkExperience
	case StepEducation:
		dst.Education = in.Education
	case StepSkills:
		dst.Skills = in.Skills
		dst.Languages = in.Languages
	case StepAdditional:
		dst.Projects = in.Projects
		dst.Certifications = in.Certifications
		dst.CustomSections = in.CustomSections
		dst.References = in.References
	}
}

// --- проверки шагов ---

var stepValidator = validator.New()

type templateStep struct {
	Title    string            `json:"title" validate:"required,max=200"`
	Template models.CVTemplate `json:"template" validate:"required,is-cv-template"`
}

type personalStep struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

type summaryStep struct {
	Summary string `json:"summary" validate:"max=5000"`
}

type workItem struct {
	Company  string `json:"company" validate:"required"`
	Position string `json:"position" validate:"required"`
}

type workStep struct {
	WorkExperience []workItem `json:"workExperience" validate:"dive"`
}

type educationItem struct {
	Institution string `json:"institution" validate:"required"`
}

type educationStep struct {
	Education []educationItem `json:"education" validate:"dive"`
}

type namedItem struct {
	Name string `json:"name" validate:"required"`
}

type titledItem struct {
	Title string `json:"title" validate:"required"`
}

type skillsStep struct {
	Skills    []namedItem `json:"skills" validate:"dive"`
	Languages []namedItem `json:"languages" validate:"dive"`
}

type additionalStep struct {
	Projects       []namedItem  `json:"projects" validate:"dive"`
	Certifications []namedItem  `json:"certifications" validate:"dive"`
	CustomSections []titledItem `json:"customSections" validate:"dive"`
	References     []namedItem  `json:"references" validate:"dive"`
}

func validateStep(s Step, d *Draft) error {
	switch s {
	case StepTemplate:
		return stepValidator.Validate(&templateStep{Title: d.Title, Template: d.Template})
	case StepPersonalInfo:
		return stepValidator.Validate(&personalStep{FullName: d.PersonalInfo.FullName, Email: d.PersonalInfo.Email})
	case StepSummary:
		return stepValidator.Validate(&summaryStep{Summary: d.Summary})
	case StepWorkExperience:
		step := workStep{}
		for _, w := range d.WorkExperience {
			step.WorkExperience = append(step.WorkExperience, workItem{Company: w.Company, Position: w.Position})
		}
		return stepValidator.Validate(&step)
	case StepEducation:
		step := educationStep{}
		for _, e := range d.Education {
			step.Education = append(step.Education, educationItem{Institution: e.Institution})
		}
		return stepValidator.Validate(&step)
	case StepSkills:
		return stepValidator.Validate(&skillsStep{
			Skills:    names(d.Skills, func(s models.Skill) string { return s.Name }),
			Languages: names(d.Languages, func(l models.Language) string { return l.Name }),
		})
	case StepAdditional:
		step := additionalStep{
			Projects:       names(d.Projects, func(p models.Project) string { return p.Name }),
			Certifications: names(d.Certifications, func(c models.Certification) string { return c.Name }),
			References:     names(d.References, func(r models.Reference) string { return r.Name }),
		}
		for _, c := range d.CustomSections {
			step.CustomSections = append(step.CustomSections, titledItem{Title: c.Title})
		}
		return stepValidator.Validate(&step)
	}
	return nil
}

func names[T any](items []T, name func(T) string) []namedItem {
	out := make([]namedItem, 0, len(items))
	for _, it := range items {
		out = append(out, namedItem{Name: name(it)})
	}
	return out
}
