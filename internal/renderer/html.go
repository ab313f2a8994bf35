package renderer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"cvbuilder_backend/internal/models"
)

// Палитра и типографика для каждого шаблона резюме
type theme struct {
	Font    template.CSS
	Accent  template.CSS
	Heading template.CSS
	Columns bool
}

var themes = map[models.CVTemplate]theme{
	models.TemplateModern:       {Font: "'Inter', Arial, sans-serif", Accent: "#2563eb", Heading: "uppercase"},
	models.TemplateClassic:      {Font: "Georgia, 'Times New Roman', serif", Accent: "#111827", Heading: "none"},
	models.TemplateProfessional: {Font: "'Helvetica Neue', Arial, sans-serif", Accent: "#0f766e", Heading: "uppercase"},
	models.TemplateCreative:     {Font: "'Poppins', 'Segoe UI', sans-serif", Accent: "#db2777", Heading: "none", Columns: true},
	models.TemplateMinimal:      {Font: "Arial, sans-serif", Accent: "#374151", Heading: "none"},
	models.TemplateExecutive:    {Font: "Garamond, Georgia, serif", Accent: "#7c2d12", Heading: "uppercase"},
	models.TemplateTechnical:    {Font: "'JetBrains Mono', 'Courier New', monospace", Accent: "#16a34a", Heading: "none", Columns: true},
}

const layout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  @page { size: A4; margin: 16mm; }
  body { font-family: {{.Theme.Font}}; color: #1f2937; font-size: 11pt; line-height: 1.45; margin: 0; }
  h1 { color: {{.Theme.Accent}}; margin: 0 0 4px; font-size: 22pt; }
  h2 { color: {{.Theme.Accent}}; text-transform: {{.Theme.Heading}}; font-size: 12pt; border-bottom: 1px solid {{.Theme.Accent}}; padding-bottom: 2px; margin: 18px 0 8px; }
  .subtitle { font-size: 13pt; color: #4b5563; }
  .contacts span { margin-right: 12px; font-size: 9.5pt; }
  .item { margin-bottom: 10px; }
  .item-head { display: flex; justify-content: space-between; font-weight: 600; }
  .muted { color: #6b7280; font-size: 9.5pt; }
  ul { margin: 4px 0 0 18px; padding: 0; }
  .tags span { display: inline-block; border: 1px solid {{.Theme.Accent}}; border-radius: 3px; padding: 1px 6px; margin: 0 4px 4px 0; font-size: 9pt; }
  .photo { float: right; width: 96px; height: 96px; border-radius: 50%; object-fit: cover; }
  {{if .Theme.Columns}}.grid { display: grid; grid-template-columns: 2fr 1fr; gap: 24px; }{{end}}
</style>
</head>
<body class="template-{{.Template}}">
{{with .CV.PersonalInfo}}
<header>
  {{if .PhotoURL}}<img class="photo" src="{{.PhotoURL}}" alt="">{{end}}
  <h1>{{.FullName}}</h1>
  {{if .JobTitle}}<div class="subtitle">{{.JobTitle}}</div>{{end}}
  <div class="contacts">
    {{if .Email}}<span>{{.Email}}</span>{{end}}
    {{if .Phone}}<span>{{.Phone}}</span>{{end}}
    {{if .Location}}<span>{{.Location}}</span>{{end}}
    {{if .Website}}<span>{{.Website}}</span>{{end}}
    {{if .LinkedIn}}<span>{{.LinkedIn}}</span>{{end}}
    {{if .GitHub}}<span>{{.GitHub}}</span>{{end}}
  </div>
</header>
{{end}}
<div class="grid">
<div>
{{if .CV.Summary}}<section><h2>Summary</h2><p>{{.CV.Summary}}</p></section>{{end}}
{{if .CV.WorkExperience}}<section><h2>Experience</h2>
{{range .CV.WorkExperience}}<div class="item">
  <div class="item-head"><span>{{.Position}}{{if .Company}}, {{.Company}}{{end}}</span><span class="muted">{{period .StartDate .EndDate .Current}}</span></div>
  {{if .Location}}<div class="muted">{{.Location}}</div>{{end}}
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  {{if .Achievements}}<ul>{{range .Achievements}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>{{end}}
</section>{{end}}
{{if .CV.Projects}}<section><h2>Projects</h2>
{{range .CV.Projects}}<div class="item">
  <div class="item-head"><span>{{.Name}}</span><span class="muted">{{period .StartDate .EndDate false}}</span></div>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  {{if .Technologies}}<div class="muted">{{join .Technologies ", "}}</div>{{end}}
</div>{{end}}
</section>{{end}}
{{range .CV.CustomSections}}<section><h2>{{.Title}}</h2>
{{range .Items}}<div class="item">
  <div class="item-head"><span>{{.Title}}</span><span class="muted">{{.Date}}</span></div>
  {{if .Subtitle}}<div class="muted">{{.Subtitle}}</div>{{end}}
  {{if .Description}}<p>{{.Description}}</p>{{end}}
</div>{{end}}
</section>{{end}}
</div>
<div>
{{if .CV.Education}}<section><h2>Education</h2>
{{range .CV.Education}}<div class="item">
  <div class="item-head"><span>{{.Institution}}</span><span class="muted">{{period .StartDate .EndDate false}}</span></div>
  <div>{{.Degree}}{{if .Field}}, {{.Field}}{{end}}</div>
  {{if .GPA}}<div class="muted">GPA {{.GPA}}</div>{{end}}
</div>{{end}}
</section>{{end}}
{{if .CV.Skills}}<section><h2>Skills</h2><div class="tags">{{range .CV.Skills}}<span>{{.Name}}{{if .Level}} ({{.Level}}){{end}}</span>{{end}}</div></section>{{end}}
{{if .CV.Languages}}<section><h2>Languages</h2><ul>{{range .CV.Languages}}<li>{{.Name}}{{if .Proficiency}} - {{.Proficiency}}{{end}}</li>{{end}}</ul></section>{{end}}
{{if .CV.Certifications}}<section><h2>Certifications</h2><ul>{{range .CV.Certifications}}<li>{{.Name}}{{if .Issuer}}, {{.Issuer}}{{end}}{{if .Date}} <span class="muted">{{.Date}}</span>{{end}}</li>{{end}}</ul></section>{{end}}
{{if .CV.References}}<section><h2>References</h2>{{range .CV.References}}<div class="item"><div>{{.Name}}</div><div class="muted">{{.Position}}{{if .Company}}, {{.Company}}{{end}}</div>{{if .Email}}<div class="muted">{{.Email}}</div>{{end}}</div>{{end}}</section>{{end}}
</div>
</div>
</body>
</html>`

// CVView - плоское представление резюме для шаблона
type CVView struct {
	PersonalInfo   models.PersonalInfo
	Summary        string
	WorkExperience []models.WorkExperience
	Education      []models.Education
	Skills         []models.Skill
	Languages      []models.Language
	Projects       []models.Project
	Certifications []models.Certification
	CustomSections []models.CustomSection
	References     []models.Reference
}

type pageData struct {
	Title    string
	Template models.CVTemplate
	Theme    theme
	CV       CVView
}

// HTMLRenderer рендерит резюме в самодостаточный HTML (стили inline)
type HTMLRenderer struct {
	tpl *template.Template
}

func NewHTMLRenderer() (*HTMLRenderer, error) {
	tpl, err := template.New("cv").Funcs(template.FuncMap{
		"join":   strings.Join,
		"period": period,
	}).Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parse cv layout: %w", err)
	}
	return &HTMLRenderer{tpl: tpl}, nil
}

// Render использует tmpl, если он задан и валиден, иначе шаблон резюме
func (r *HTMLRenderer) Render(cv *models.CV, tmpl models.CVTemplate) (string, error) {
	if !tmpl.IsValid() {
		tmpl = cv.Template
	}
	th, ok := themes[tmpl]
	if !ok {
		tmpl = models.TemplateModern
		th = themes[tmpl]
	}

	var buf bytes.Buffer
	err := r.tpl.Execute(&buf, pageData{
		Title:    cv.Title,
		Template: tmpl,
		Theme:    th,
		CV:       viewOf(cv),
	})
	if err != nil {
		return "", fmt.Errorf("render cv %s: %w", cv.ID, err)
	}
	return buf.String(), nil
}

func viewOf(cv *models.CV) CVView {
	return CVView{
		PersonalInfo:   cv.PersonalInfo.Data(),
		Summary:        cv.Summary,
		WorkExperience: cv.WorkExperience,
		Education:      cv.Education,
		Skills:         cv.Skills,
		Languages:      cv.Languages,
		Projects:       cv.Projects,
		Certifications: cv.Certifications,
		CustomSections: cv.CustomSections,
		References:     cv.References,
	}
}

func period(start, end string, current bool) string {
	switch {
	case start == "" && end == "" && !current:
		return ""
	case current:
		return strings.TrimSpace(start + " - Present")
	case end == "":
		return start
	case start == "":
		return end
	default:
		return start + " - " + end
	}
}
