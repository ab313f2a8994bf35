package email

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Имена встроенных шаблонов
const (
	TemplateWelcome             = "welcome"
	TemplateVerifyEmail         = "verify_email"
	TemplatePasswordReset       = "password_reset"
	TemplateSubscriptionChanged = "subscription_changed"
)

var defaultTemplates = map[string]string{
	TemplateWelcome: `<p>Hi {{.Name}},</p>
<p>Welcome to CV Builder. You can create up to {{.CVLimit}} CVs on the free plan.</p>`,
	TemplateVerifyEmail: `<p>Hi {{.Name}},</p>
<p>Confirm your email address: <a href="{{.Link}}">{{.Link}}</a></p>`,
	TemplatePasswordReset: `<p>Hi {{.Name}},</p>
<p>Use the link below to reset your password. It expires in {{.ExpiresIn}}.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not request a reset, ignore this email.</p>`,
	TemplateSubscriptionChanged: `<p>Hi {{.Name}},</p>
<p>Your subscription is now <b>{{.Tier}}</b> ({{.Status}}).{{if .ExpiresAt}} Active until {{.ExpiresAt}}.{{end}}</p>`,
}

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
	}
}

// NewDefaultTemplateManager загружает встроенные шаблоны и,
// если dir не пустой, переопределяет их файлами *.html из dir
func NewDefaultTemplateManager(dir string) (*TemplateManager, error) {
	tm := NewTemplateManager()
	for name, src := range defaultTemplates {
		if err := tm.AddTemplate(name, src); err != nil {
			return nil, err
		}
	}
	if dir == "" {
		return tm, nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return tm, nil
		}
		return nil, err
	}
	if err := tm.LoadTemplates(dir); err != nil {
		return nil, err
	}
	return tm, nil
}

func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Option("missingkey=zero").Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return nil
}

// LoadTemplates загружает шаблоны из директории, имя = имя файла без .html
func (tm *TemplateManager) LoadTemplates(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		templateName := strings.TrimSuffix(filepath.Base(path), ".html")
		if err := tm.AddTemplate(templateName, string(content)); err != nil {
			return fmt.Errorf("failed to add template %s: %w", templateName, err)
		}
		return nil
	})
}

// TemplateNames возвращает отсортированный список имен загруженных шаблонов
func (tm *TemplateManager) TemplateNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	names := make([]string, 0, len(tm.templates))
	for name := range tm.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
