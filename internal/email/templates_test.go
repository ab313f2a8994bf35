package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates_Render(t *testing.T) {
	tm, err := NewDefaultTemplateManager("")
	require.NoError(t, err)

	assert.Equal(t, []string{
		TemplatePasswordReset,
		TemplateSubscriptionChanged,
		TemplateVerifyEmail,
		TemplateWelcome,
	}, tm.TemplateNames())

	html, err := tm.Render(TemplatePasswordReset, TemplateData{
		"Name":      "Ann",
		"Link":      "https://app.test/reset?token=abc",
		"ExpiresIn": "1h0m0s",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi Ann")
	assert.Contains(t, html, "https://app.test/reset?token=abc")
}

func TestTemplateManager_OverrideFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.html"), []byte("Hello {{.Name}}!"), 0o644))

	tm, err := NewDefaultTemplateManager(dir)
	require.NoError(t, err)

	html, err := tm.Render(TemplateWelcome, TemplateData{"Name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob!", html)
}

func TestTemplateManager_Unknown(t *testing.T) {
	tm := NewTemplateManager()
	_, err := tm.Render("nope", nil)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "none"})
	require.NoError(t, err)
	assert.Equal(t, "log", p.Name())

	_, err = NewProvider(Config{Provider: "smtp"})
	assert.Error(t, err)

	_, err = NewProvider(Config{Provider: "sendgrid", FromEmail: "a@b.c"})
	assert.Error(t, err)

	p, err = NewProvider(Config{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25, FromEmail: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "smtp", p.Name())

	_, err = NewProvider(Config{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestSMTPProvider_SendRequiresRecipients(t *testing.T) {
	p := NewSMTPProvider(Config{SMTPHost: "localhost", SMTPPort: 25, FromEmail: "a@b.c"})
	err := p.Send(context.Background(), &Email{Subject: "x"})
	assert.Error(t, err)
}
