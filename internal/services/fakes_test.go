package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/testutil"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type sentMail struct {
	Kind  string
	To    string
	Token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) record(kind string, u *models.User, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: kind, To: u.Email, Token: token})
}

func (m *fakeMailer) SendWelcome(_ context.Context, u *models.User) { m.record("welcome", u, "") }
func (m *fakeMailer) SendVerification(_ context.Context, u *models.User, token string) {
	m.record("verify", u, token)
}
func (m *fakeMailer) SendPasswordReset(_ context.Context, u *models.User, token string, _ time.Duration) {
	m.record("reset", u, token)
}
func (m *fakeMailer) SendSubscriptionChanged(_ context.Context, u *models.User) {
	m.record("subscription", u, "")
}

func (m *fakeMailer) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *fakeCache) SetIfNotExists(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = []byte(value)
	return true, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFiles() *fakeFiles { return &fakeFiles{files: map[string][]byte{}} }

func (f *fakeFiles) Save(_ context.Context, path string, r io.Reader, _ string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = buf.Bytes()
	return nil
}

func (f *fakeFiles) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *fakeFiles) GetURL(_ context.Context, path string) (string, error) {
	return "/files/" + path, nil
}

func (f *fakeFiles) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok
}

type fakePDF struct {
	data []byte
	err  error
}

func (p *fakePDF) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	if html == "" {
		return nil, errors.New("empty html")
	}
	return p.data, nil
}

type fakeHTML struct{}

func (fakeHTML) Render(cv *models.CV, tmpl models.CVTemplate) (string, error) {
	if tmpl == "" {
		tmpl = cv.Template
	}
	return "<html data-template=\"" + string(tmpl) + "\">" + cv.Title + "</html>", nil
}

// seedUser создает пользователя с паролем "secret123"
func seedUser(t *testing.T, store *testutil.Store, email string, tier models.SubscriptionTier) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	u := &models.User{
		Name:               "Test User",
		Email:              email,
		PasswordHash:       hash,
		Role:               models.UserRoleUser,
		SubscriptionTier:   tier,
		SubscriptionStatus: models.SubscriptionStatusNone,
		Active:             true,
	}
	if tier != models.TierFree {
		exp := fixedNow.AddDate(0, 1, 0)
		u.SubscriptionStatus = models.SubscriptionStatusActive
		u.SubscriptionPlan = models.PlanMonthly
		u.SubscriptionExpiresAt = &exp
	}
	store.PutUser(u)
	return u
}
