package client

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Данные резюме приходят в разных формах (старые клиенты, импорт),
// поэтому каждое поле ищется по нескольким именам.

type htmlEntry struct {
	Title    string
	Subtitle string
	Period   string
	Text     string
	Bullets  []string
}

type htmlView struct {
	Title      string
	Name       string
	Headline   string
	Contacts   []string
	Summary    string
	Experience []htmlEntry
	Education  []htmlEntry
	Projects   []htmlEntry
	Certs      []htmlEntry
	Skills     []string
	Languages  []string
}

var fallbackTemplate = template.Must(template.New("cv").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Arial, sans-serif; color: #222; font-size: 11pt; line-height: 1.4; margin: 24px; }
  h1 { margin: 0; font-size: 20pt; }
  h2 { font-size: 12pt; border-bottom: 1px solid #999; margin: 16px 0 6px; }
  .headline { color: #555; }
  .contacts { font-size: 9pt; color: #555; }
  .entry { margin-bottom: 8px; }
  .period { float: right; color: #777; font-size: 9pt; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
{{if .Headline}}<div class="headline">{{.Headline}}</div>{{end}}
{{if .Contacts}}<div class="contacts">{{range $i, $c := .Contacts}}{{if $i}} | {{end}}{{$c}}{{end}}</div>{{end}}
{{if .Summary}}<h2>Summary</h2><p>{{.Summary}}</p>{{end}}
{{define "entries"}}{{range .}}<div class="entry">
  {{if .Period}}<span class="period">{{.Period}}</span>{{end}}
  <strong>{{.Title}}</strong>{{if .Subtitle}}, {{.Subtitle}}{{end}}
  {{if .Text}}<div>{{.Text}}</div>{{end}}
  {{if .Bullets}}<ul>{{range .Bullets}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>{{end}}{{end}}
{{if .Experience}}<h2>Experience</h2>{{template "entries" .Experience}}{{end}}
{{if .Education}}<h2>Education</h2>{{template "entries" .Education}}{{end}}
{{if .Projects}}<h2>Projects</h2>{{template "entries" .Projects}}{{end}}
{{if .Skills}}<h2>Skills</h2><p>{{range $i, $s := .Skills}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}
{{if .Languages}}<h2>Languages</h2><p>{{range $i, $l := .Languages}}{{if $i}}, {{end}}{{$l}}{{end}}</p>{{end}}
{{if .Certs}}<h2>Certifications</h2>{{template "entries" .Certs}}{{end}}
</body>
</html>
`))

// BuildHTML собирает простой HTML документ из JSON резюме. Все значения экранируются.
func BuildHTML(cv map[string]interface{}) string {
	view := buildView(cv)
	var buf bytes.Buffer
	if err := fallbackTemplate.Execute(&buf, view); err != nil {
		return "<!DOCTYPE html><html><body><h1>" + template.HTMLEscapeString(view.Name) + "</h1></body></html>"
	}
	return buf.String()
}

func buildView(cv map[string]interface{}) htmlView {
	personal := mapAt(cv, "personalInfo", "personal_info", "personal", "contact")
	lookup := func(keys ...string) string {
		if v := firstString(personal, keys...); v != "" {
			return v
		}
		return firstString(cv, keys...)
	}

	v := htmlView{
		Title:    firstString(cv, "title", "name"),
		Name:     lookup("fullName", "full_name", "name"),
		Headline: lookup("jobTitle", "job_title", "headline", "position"),
		Summary:  firstString(cv, "summary", "profile", "about", "objective"),
	}
	if v.Name == "" {
		v.Name = strings.TrimSpace(lookup("firstName", "first_name") + " " + lookup("lastName", "last_name"))
	}
	if v.Headline == "" {
		v.Headline = firstString(cv, "targetJob", "target_job")
	}
	if v.Summary == "" {
		v.Summary = firstString(personal, "summary")
	}
	if v.Title == "" {
		v.Title = v.Name
	}
	for _, key := range []string{"email", "phone", "location", "website", "linkedin", "github"} {
		if c := lookup(key); c != "" {
			v.Contacts = append(v.Contacts, c)
		}
	}

	for _, item := range listAt(cv, "workExperience", "experience", "work_experience", "experiences", "jobs") {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		v.Experience = append(v.Experience, htmlEntry{
			Title:    firstString(m, "position", "title", "jobTitle", "job_title", "role"),
			Subtitle: firstString(m, "company", "employer", "organization", "companyName"),
			Period:   period(m),
			Text:     firstString(m, "description", "summary"),
			Bullets:  stringsAt(m, "achievements", "highlights", "bullets", "responsibilities"),
		})
	}

	for _, item := range listAt(cv, "education", "educations", "schools") {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		degree := firstString(m, "degree", "qualification")
		if field := firstString(m, "field", "fieldOfStudy", "field_of_study", "major"); field != "" {
			degree = strings.TrimSpace(degree + " " + field)
		}
		v.Education = append(v.Education, htmlEntry{
			Title:    degree,
			Subtitle: firstString(m, "institution", "school", "university"),
			Period:   period(m),
			Text:     firstString(m, "description"),
		})
	}

	for _, item := range listAt(cv, "projects") {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		v.Projects = append(v.Projects, htmlEntry{
			Title:   firstString(m, "name", "title"),
			Text:    firstString(m, "description"),
			Bullets: stringsAt(m, "technologies", "tech", "stack"),
		})
	}

	for _, item := range listAt(cv, "certifications", "certificates") {
		switch c := item.(type) {
		case string:
			v.Certs = append(v.Certs, htmlEntry{Title: c})
		case map[string]interface{}:
			v.Certs = append(v.Certs, htmlEntry{
				Title:    firstString(c, "name", "title"),
				Subtitle: firstString(c, "issuer", "organization", "authority"),
				Period:   firstString(c, "date", "issued"),
			})
		}
	}

	v.Skills = namesAt(cv, []string{"skills", "skillset"}, "name", "skill", "title")
	v.Languages = namesAt(cv, []string{"languages"}, "name", "language")
	return v
}

func period(m map[string]interface{}) string {
	start := firstString(m, "startDate", "start_date", "from", "start")
	end := firstString(m, "endDate", "end_date", "to", "end")
	if current, _ := m["current"].(bool); current || m["isCurrent"] == true {
		end = "Present"
	}
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	default:
		return end
	}
}

// namesAt - список строк или объектов {name}; уровень добавляется в скобках
func namesAt(m map[string]interface{}, listKeys []string, nameKeys ...string) []string {
	var out []string
	for _, item := range listAt(m, listKeys...) {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case map[string]interface{}:
			name := firstString(v, nameKeys...)
			if name == "" {
				continue
			}
			if level := firstString(v, "level", "proficiency"); level != "" {
				name = fmt.Sprintf("%s (%s)", name, level)
			}
			out = append(out, name)
		}
	}
	return out
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringAt(m, k); s != "" {
			return s
		}
	}
	return ""
}

func stringAt(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}

func mapAt(m map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		if v, ok := m[k].(map[string]interface{}); ok {
			return v
		}
	}
	return nil
}

func listAt(m map[string]interface{}, keys ...string) []interface{} {
	for _, k := range keys {
		if v, ok := m[k].([]interface{}); ok && len(v) > 0 {
			return v
		}
	}
	return nil
}

func stringsAt(m map[string]interface{}, keys ...string) []string {
	var out []string
	for _, item := range listAt(m, keys...) {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
