package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/cache"
	"cvbuilder_backend/internal/config"
	"cvbuilder_backend/internal/email"
	"cvbuilder_backend/internal/middleware"
	"cvbuilder_backend/internal/renderer"
	"cvbuilder_backend/internal/services"
	"cvbuilder_backend/internal/storage"
	"cvbuilder_backend/internal/testutil"
)

const webhookSecret = "whsec_test"

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return "", errors.New("network disabled in tests")
}

type testApp struct {
	router *gin.Engine
	store  *testutil.Store
}

func newTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Server.BaseURL = "http://app.test"
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	cfg.Webhook.Secret = webhookSecret
	cfg.Storage.BaseURL = "/files"
	cfg.Plans.FreeCVLimit = 2
	for _, m := range mutate {
		m(cfg)
	}

	store := testutil.NewStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	templates, err := email.NewDefaultTemplateManager("")
	require.NoError(t, err)
	mailer := services.NewEmailService(email.NewLogProvider(), templates, cfg.Server.BaseURL, cfg.Plans.FreeCVLimit)

	files, err := storage.NewLocalStorage(storage.Config{BasePath: t.TempDir(), BaseURL: cfg.Storage.BaseURL})
	require.NoError(t, err)

	htmlRenderer, err := renderer.NewHTMLRenderer()
	require.NoError(t, err)

	container := services.NewServiceContainer(services.Dependencies{
		Repos: services.Repositories{
			Users:         store.Users(),
			CVs:           store.CVs(),
			WebhookEvents: store.WebhookEvents(),
		},
		Tokens:  tokens,
		Policy:  auth.NewPlanPolicy(cfg.Plans.FreeCVLimit),
		Mailer:  mailer,
		Fetcher: stubFetcher{},
		Cache:   cache.Disabled(),
		Files:   files,
		HTML:    htmlRenderer,
		PDF:     renderer.NewChromedpRenderer(renderer.PDFOptions{Disabled: true}),
		BaseURL: cfg.Server.BaseURL,
	})

	router := SetupRouter(RouterConfig{
		Config:   cfg,
		Services: container,
		Tokens:   tokens,
	})
	return &testApp{router: router, store: store}
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID               string `json:"id"`
		Email            string `json:"email"`
		SubscriptionTier string `json:"subscriptionTier"`
	} `json:"user"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *testApp) register(t *testing.T, email string) authBody {
	t.Helper()
	status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	var out authBody
	testutil.DecodeJSON(t, body, &out)
	require.NotEmpty(t, out.Token)
	return out
}

func (a *testApp) createCV(t *testing.T, token, title string) (int, string) {
	t.Helper()
	return testutil.SendRequest(t, a.router, http.MethodPost, "/api/cv", token, map[string]interface{}{
		"title":   title,
		"summary": "Backend engineer working with Go and PostgreSQL",
		"skills":  []map[string]string{{"name": "Go"}, {"name": "PostgreSQL"}},
	})
}

func cvID(t *testing.T, body string) string {
	t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, body, &out)
	require.NotEmpty(t, out.ID)
	return out.ID
}

func TestRouter_AuthFlow(t *testing.T) {
	a := newTestApp(t)

	reg := a.register(t, "Jane@Example.com")
	assert.Equal(t, "jane@example.com", reg.User.Email)
	assert.Equal(t, "free", reg.User.SubscriptionTier)

	status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "jane@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status, body)
	var login authBody
	testutil.DecodeJSON(t, body, &login)
	assert.Equal(t, reg.User.ID, login.User.ID)

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, reg.User.ID)
}

func TestRouter_LoginDoesNotRevealWhichFieldIsWrong(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "jane@example.com")

	unknownStatus, unknownBody := testutil.SendRequest(t, a.router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "secret123",
	})
	wrongStatus, wrongBody := testutil.SendRequest(t, a.router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong-password",
	})

	assert.Equal(t, http.StatusBadRequest, unknownStatus)
	assert.Equal(t, unknownStatus, wrongStatus)
	assert.JSONEq(t, unknownBody, wrongBody)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/api/auth/me", "/api/cv", "/api/users/me/profile", "/api/subscriptions"} {
		status, body := testutil.SendRequest(t, a.router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, "%s: %s", path, body)
	}

	status, _ := testutil.SendRequest(t, a.router, http.MethodGet, "/api/cv", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_ForgotPasswordNeverReturnsToken(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "jane@example.com")

	for _, addr := range []string{"jane@example.com", "ghost@example.com"} {
		status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": addr})
		require.Equal(t, http.StatusOK, status, body)
		assert.NotContains(t, body, "resetToken")
	}
}

func TestRouter_CVLifecycleAndFreeLimit(t *testing.T) {
	a := newTestApp(t)
	owner := a.register(t, "owner@example.com")
	stranger := a.register(t, "stranger@example.com")

	status, body := a.createCV(t, owner.Token, "First")
	require.Equal(t, http.StatusCreated, status, body)
	firstID := cvID(t, body)

	status, body = a.createCV(t, owner.Token, "Second")
	require.Equal(t, http.StatusCreated, status, body)

	status, body = a.createCV(t, owner.Token, "Third")
	assert.Equal(t, http.StatusForbidden, status, body)
	var limitErr errorBody
	testutil.DecodeJSON(t, body, &limitErr)
	assert.NotEmpty(t, limitErr.Error.Message)
	assert.Equal(t, 2, a.store.CVCount(owner.User.ID))

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/api/cv", owner.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	var list struct {
		Count int `json:"count"`
	}
	testutil.DecodeJSON(t, body, &list)
	assert.Equal(t, 2, list.Count)

	status, _ = testutil.SendRequest(t, a.router, http.MethodGet, "/api/cv/"+firstID, stranger.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = testutil.SendRequest(t, a.router, http.MethodGet, "/api/cv/does-not-exist", owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = testutil.SendRequest(t, a.router, http.MethodPut, "/api/cv/"+firstID, owner.Token, map[string]interface{}{
		"title":  "Renamed",
		"userId": stranger.User.ID,
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"title":"Renamed"`)
	assert.Contains(t, body, owner.User.ID)

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/api/cv/"+firstID+"/preview", owner.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "<html")

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/api/cv/"+firstID+"/pdf", owner.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status, body)

	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/cv/"+firstID+"/analyze", owner.Token, map[string]string{
		"jobDescription": "Go PostgreSQL Kubernetes",
	})
	assert.Equal(t, http.StatusForbidden, status, body)

	status, _ = testutil.SendRequest(t, a.router, http.MethodDelete, "/api/cv/"+firstID, owner.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = a.createCV(t, owner.Token, "Third again")
	assert.Equal(t, http.StatusCreated, status, body)
}

func TestRouter_SubscribeUnlocksAnalyze(t *testing.T) {
	a := newTestApp(t)
	user := a.register(t, "pro@example.com")
	_, body := a.createCV(t, user.Token, "Main")
	id := cvID(t, body)

	status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/subscribe", user.Token, map[string]string{"plan": "monthly"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"tier":"premium"`)

	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/cv/"+id+"/analyze", user.Token, map[string]string{
		"jobDescription": "Go PostgreSQL Kubernetes",
	})
	require.Equal(t, http.StatusOK, status, body)
	var analysis struct {
		ATSScore        int      `json:"atsScore"`
		KeywordMatches  []string `json:"keywordMatches"`
		MissingKeywords []string `json:"missingKeywords"`
	}
	testutil.DecodeJSON(t, body, &analysis)
	assert.Contains(t, analysis.KeywordMatches, "go")
	assert.Contains(t, analysis.MissingKeywords, "kubernetes")
	assert.Positive(t, analysis.ATSScore)

	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/cancel", user.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"status":"cancelled"`)
}

func TestRouter_SharedCVIsPublic(t *testing.T) {
	a := newTestApp(t)
	user := a.register(t, "share@example.com")
	_, body := a.createCV(t, user.Token, "Public CV")
	id := cvID(t, body)

	status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/cv/"+id+"/share", user.Token, map[string]interface{}{"isPublic": true})
	require.Equal(t, http.StatusOK, status, body)
	var share struct {
		ShareToken string `json:"shareToken"`
	}
	testutil.DecodeJSON(t, body, &share)
	require.NotEmpty(t, share.ShareToken)

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/api/public/cv/"+share.ShareToken, "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Public CV")

	status, _ = testutil.SendRequest(t, a.router, http.MethodPost, "/api/cv/"+id+"/share", user.Token, map[string]interface{}{"isPublic": false})
	require.Equal(t, http.StatusOK, status)
	status, _ = testutil.SendRequest(t, a.router, http.MethodGet, "/api/public/cv/"+share.ShareToken, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_WebhookSignatureAndIdempotency(t *testing.T) {
	a := newTestApp(t)
	user := a.register(t, "hook@example.com")
	payload := []byte(fmt.Sprintf(`{"id":"evt_100","type":"subscription.created","data":{"userId":%q,"plan":"monthly"}}`, user.User.ID))

	status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/webhook", "", payload)
	assert.Equal(t, http.StatusUnauthorized, status, body)

	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/webhook", "", payload,
		middleware.WebhookSignatureHeader, middleware.SignWebhook("wrong-secret", payload))
	assert.Equal(t, http.StatusUnauthorized, status, body)

	signature := middleware.SignWebhook(webhookSecret, payload)
	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/webhook", "", payload,
		middleware.WebhookSignatureHeader, signature)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"status":"processed"`)

	status, body = testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/webhook", "", payload,
		middleware.WebhookSignatureHeader, signature)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"status":"duplicate"`)

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/api/subscriptions", user.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"tier":"premium"`)
}

func TestRouter_WebhookDisabledWithoutSecret(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Webhook.Secret = "" })
	payload := []byte(`{"id":"evt_1","type":"subscription.created","data":{"userId":"u"}}`)

	status, body := testutil.SendRequest(t, a.router, http.MethodPost, "/api/subscriptions/webhook", "", payload,
		middleware.WebhookSignatureHeader, middleware.SignWebhook("", payload))
	assert.Equal(t, http.StatusServiceUnavailable, status, body)
}

func TestRouter_DeleteAccountCascades(t *testing.T) {
	a := newTestApp(t)
	user := a.register(t, "leaving@example.com")
	for _, title := range []string{"One", "Two"} {
		status, body := a.createCV(t, user.Token, title)
		require.Equal(t, http.StatusCreated, status, body)
	}
	require.Equal(t, 2, a.store.CVCount(user.User.ID))

	status, body := testutil.SendRequest(t, a.router, http.MethodDelete, "/api/users/me", user.Token, map[string]string{"password": "secret123"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 0, a.store.CVCount(user.User.ID))
	assert.Equal(t, 0, a.store.UserCount())

	status, _ = testutil.SendRequest(t, a.router, http.MethodGet, "/api/auth/me", user.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_HealthAndCORS(t *testing.T) {
	a := newTestApp(t)

	status, body := testutil.SendRequest(t, a.router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, body = testutil.SendRequest(t, a.router, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status, body)

	status, _ = testutil.SendRequest(t, a.router, http.MethodOptions, "/api/cv", "", nil,
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "POST",
	)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	a := newTestApp(t)
	req, err := http.NewRequest(http.MethodGet, "/health", strings.NewReader(""))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_PhotoUpload(t *testing.T) {
	a := newTestApp(t)
	user := a.register(t, "photo@example.com")
	status, body := a.createCV(t, user.Token, "With photo")
	require.Equal(t, http.StatusCreated, status, body)
	id := cvID(t, body)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 200, 200))))

	upload := func(field string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile(field, "me.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req, err := http.NewRequest(http.MethodPost, "/api/cv/"+id+"/photo", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+user.Token)
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("photo", img.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"photoUrl":"/files/photos/`)

	rec = upload("file", img.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload("photo", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "JPEG or PNG")

	status, body = testutil.SendRequest(t, a.router, http.MethodDelete, "/api/cv/"+id+"/photo", user.Token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.NotContains(t, body, "photoUrl")
}
