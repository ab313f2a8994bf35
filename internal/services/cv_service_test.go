package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/cache"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/testutil"
	"cvbuilder_backend/pkg/apperrors"
)

type cvFixture struct {
	svc     *cvService
	store   *testutil.Store
	fetcher *fakeFetcher
	cache   *fakeCache
	files   *fakeFiles
}

func newCVFixture(t *testing.T) *cvFixture {
	t.Helper()
	f := &cvFixture{
		store:   testutil.NewStore(),
		fetcher: &fakeFetcher{},
		cache:   newFakeCache(),
		files:   newFakeFiles(),
	}
	f.svc = NewCVService(f.store.CVs(), f.store.Users(), auth.NewPlanPolicy(2), f.fetcher, f.cache, f.files, "http://app.test/").(*cvService)
	f.svc.now = fixedClock
	return f
}

func (f *cvFixture) create(t *testing.T, userID, title string) *dto.CVResponse {
	t.Helper()
	cv, err := f.svc.CreateCV(context.Background(), nil, userID, &dto.CreateCVRequest{Title: title})
	require.NoError(t, err)
	return cv
}

func strPtr(s string) *string { return &s }

func TestCVService_FreeTierLimit(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	free := seedUser(t, f.store, "free@example.com", models.TierFree)

	f.create(t, free.ID, "First")
	f.create(t, free.ID, "Second")

	_, err := f.svc.CreateCV(ctx, nil, free.ID, &dto.CreateCVRequest{Title: "Third"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCVLimitReached)
	assert.Equal(t, 2, f.store.CVCount(free.ID))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, map[string]interface{}{"limit": 2}, appErr.Details)
}

func TestCVService_PremiumHasNoLimit(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	premium := seedUser(t, f.store, "pro@example.com", models.TierPremium)

	for i := 0; i < 5; i++ {
		f.create(t, premium.ID, "CV")
	}
	assert.Equal(t, 5, f.store.CVCount(premium.ID))
}

func TestCVService_LapsedPremiumFallsBackToFreeLimit(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	u := seedUser(t, f.store, "lapsed@example.com", models.TierPremium)
	f.svc.now = func() time.Time { return fixedNow.AddDate(0, 2, 0) }

	f.create(t, u.ID, "One")
	f.create(t, u.ID, "Two")
	_, err := f.svc.CreateCV(context.Background(), nil, u.ID, &dto.CreateCVRequest{Title: "Three"})
	assert.ErrorIs(t, err, apperrors.ErrCVLimitReached)
}

func TestCVService_ConcurrentCreatesRespectLimit(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	free := seedUser(t, f.store, "race@example.com", models.TierFree)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateCV(context.Background(), nil, free.ID, &dto.CreateCVRequest{Title: "Race"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, apperrors.ErrCVLimitReached) {
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, workers-2, limited)
	assert.Equal(t, 2, f.store.CVCount(free.ID))
}

func TestCVService_CreateDefaults(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	u := seedUser(t, f.store, "a@example.com", models.TierFree)

	cv, err := f.svc.CreateCV(context.Background(), nil, u.ID, &dto.CreateCVRequest{
		Title:     "  Backend  ",
		TargetJob: "Go Developer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Backend", cv.Title)
	assert.Equal(t, models.TemplateModern, cv.Template)
	assert.Equal(t, "Go Developer", cv.Metadata.TargetJob)
	assert.NotNil(t, cv.Skills)
	assert.Empty(t, cv.Skills)
}

func TestCVService_OwnershipChecks(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.store, "owner@example.com", models.TierPremium)
	other := seedUser(t, f.store, "other@example.com", models.TierPremium)
	cv := f.create(t, owner.ID, "Private")

	_, err := f.svc.GetCV(ctx, nil, other.ID, cv.ID)
	assert.ErrorIs(t, err, apperrors.ErrCVForbidden)

	_, err = f.svc.UpdateCV(ctx, nil, other.ID, cv.ID, &dto.UpdateCVRequest{Title: strPtr("Hijacked")})
	assert.ErrorIs(t, err, apperrors.ErrCVForbidden)

	assert.ErrorIs(t, f.svc.DeleteCV(ctx, nil, other.ID, cv.ID), apperrors.ErrCVForbidden)

	_, err = f.svc.AnalyzeCV(ctx, nil, other.ID, cv.ID, &dto.AnalyzeCVRequest{JobDescription: "go"})
	assert.ErrorIs(t, err, apperrors.ErrCVForbidden)

	_, err = f.svc.GetCV(ctx, nil, owner.ID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrCVNotFound)

	got, err := f.svc.GetCV(ctx, nil, owner.ID, cv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestCVService_PartialUpdate(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "a@example.com", models.TierFree)

	skills := []models.Skill{{Name: "Go"}}
	summary := "Backend engineer"
	created, err := f.svc.CreateCV(ctx, nil, u.ID, &dto.CreateCVRequest{
		Title:     "Mine",
		CVContent: dto.CVContent{Skills: &skills, Summary: &summary},
	})
	require.NoError(t, err)

	tmpl := models.TemplateTechnical
	updated, err := f.svc.UpdateCV(ctx, nil, u.ID, created.ID, &dto.UpdateCVRequest{
		Template:  &tmpl,
		TargetJob: strPtr("SRE"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Mine", updated.Title)
	assert.Equal(t, models.TemplateTechnical, updated.Template)
	assert.Equal(t, "Backend engineer", updated.Summary)
	assert.Equal(t, []models.Skill{{Name: "Go"}}, updated.Skills)
	assert.Equal(t, "SRE", updated.Metadata.TargetJob)
	assert.Equal(t, u.ID, updated.UserID)
}

func TestCVService_ListNewestFirst(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "a@example.com", models.TierFree)
	first := f.create(t, u.ID, "First")
	f.create(t, u.ID, "Second")

	_, err := f.svc.UpdateCV(ctx, nil, u.ID, first.ID, &dto.UpdateCVRequest{Title: strPtr("First v2")})
	require.NoError(t, err)

	list, err := f.svc.ListCVs(ctx, nil, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "First v2", list.CVs[0].Title)
	assert.Equal(t, "Second", list.CVs[1].Title)
}

func TestCVService_AnalyzeKeepsListOrder(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "pro@example.com", models.TierPremium)
	first := f.create(t, u.ID, "First")
	f.create(t, u.ID, "Second")

	before, err := f.store.CVs().FindByID(nil, first.ID)
	require.NoError(t, err)

	_, err = f.svc.AnalyzeCV(ctx, nil, u.ID, first.ID, &dto.AnalyzeCVRequest{JobDescription: "Go Kubernetes"})
	require.NoError(t, err)

	after, err := f.store.CVs().FindByID(nil, first.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt))
	assert.NotNil(t, after.Metadata.Data().ATSScore)

	list, err := f.svc.ListCVs(ctx, nil, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Second", list.CVs[0].Title)
	assert.Equal(t, "First", list.CVs[1].Title)
}

func TestCVService_DuplicateCountsTowardLimit(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "a@example.com", models.TierFree)
	src := f.create(t, u.ID, "Original")

	dup, err := f.svc.DuplicateCV(ctx, nil, u.ID, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original (Copy)", dup.Title)
	assert.NotEqual(t, src.ID, dup.ID)

	_, err = f.svc.DuplicateCV(ctx, nil, u.ID, src.ID)
	assert.ErrorIs(t, err, apperrors.ErrCVLimitReached)
}

func TestCVService_DeleteRemovesStoredPDF(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "a@example.com", models.TierFree)
	cv := f.create(t, u.ID, "To delete")

	key := "exports/" + u.ID + "/" + cv.ID + ".pdf"
	require.NoError(t, f.files.Save(ctx, key, strings.NewReader("pdf"), "application/pdf"))
	require.NoError(t, f.store.CVs().UpdateFields(nil, cv.ID, map[string]interface{}{
		"metadata": datatypes.NewJSONType(models.CVMetadata{PDFKey: key}),
	}))

	require.NoError(t, f.svc.DeleteCV(ctx, nil, u.ID, cv.ID))
	assert.False(t, f.files.has(key))
	assert.Equal(t, 0, f.store.CVCount(u.ID))

	assert.ErrorIs(t, f.svc.DeleteCV(ctx, nil, u.ID, cv.ID), apperrors.ErrCVNotFound)
}

func TestCVService_AnalyzeRequiresPremium(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	u := seedUser(t, f.store, "a@example.com", models.TierFree)
	cv := f.create(t, u.ID, "Mine")

	_, err := f.svc.AnalyzeCV(context.Background(), nil, u.ID, cv.ID, &dto.AnalyzeCVRequest{JobDescription: "Python"})
	assert.ErrorIs(t, err, apperrors.ErrPremiumRequired)
}

func TestCVService_AnalyzeScoresKeywords(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "pro@example.com", models.TierPremium)

	skills := []models.Skill{{Name: "Python"}, {Name: "AWS"}}
	cv, err := f.svc.CreateCV(ctx, nil, u.ID, &dto.CreateCVRequest{
		Title:     "Data",
		CVContent: dto.CVContent{Skills: &skills},
	})
	require.NoError(t, err)

	res, err := f.svc.AnalyzeCV(ctx, nil, u.ID, cv.ID, &dto.AnalyzeCVRequest{
		JobDescription: "Python AWS Docker",
		TargetCompany:  "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "aws"}, res.KeywordMatches)
	assert.Equal(t, []string{"docker"}, res.MissingKeywords)
	assert.Equal(t, 3, res.TotalKeywords)
	assert.Equal(t, 67, res.ATSScore)
	assert.True(t, res.AnalyzedAt.Equal(fixedNow))

	stored, err := f.svc.GetCV(ctx, nil, u.ID, cv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Metadata.ATSScore)
	assert.Equal(t, 67, *stored.Metadata.ATSScore)
	assert.Equal(t, "Acme", stored.Metadata.TargetCompany)
}

func TestCVService_AnalyzeJobURLIsCached(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "pro@example.com", models.TierPremium)
	cv := f.create(t, u.ID, "Kubernetes operator")
	f.fetcher.text = "Kubernetes Terraform"

	req := &dto.AnalyzeCVRequest{JobURL: "https://jobs.example.com/1"}
	first, err := f.svc.AnalyzeCV(ctx, nil, u.ID, cv.ID, req)
	require.NoError(t, err)
	second, err := f.svc.AnalyzeCV(ctx, nil, u.ID, cv.ID, req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.fetcher.calls)
	assert.Equal(t, first.ATSScore, second.ATSScore)
	assert.Equal(t, []string{"kubernetes"}, first.KeywordMatches)

	var cached string
	hit, err := f.cache.GetJSON(ctx, cache.JobDescriptionKey(req.JobURL), &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Kubernetes Terraform", cached)
}

func TestCVService_AnalyzeJobDescriptionErrors(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "pro@example.com", models.TierPremium)
	cv := f.create(t, u.ID, "Mine")

	_, err := f.svc.AnalyzeCV(ctx, nil, u.ID, cv.ID, &dto.AnalyzeCVRequest{})
	assert.ErrorIs(t, err, apperrors.ErrJobDescriptionRequired)

	f.fetcher.err = errors.New("boom")
	_, err = f.svc.AnalyzeCV(ctx, nil, u.ID, cv.ID, &dto.AnalyzeCVRequest{JobURL: "https://jobs.example.com/2"})
	assert.ErrorIs(t, err, apperrors.ErrJobDescriptionFetch)
}

func TestCVService_ShareLifecycle(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "a@example.com", models.TierFree)
	cv := f.create(t, u.ID, "Public")

	shared, err := f.svc.ShareCV(ctx, nil, u.ID, cv.ID, &dto.ShareCVRequest{IsPublic: true, ExpiresInDays: 7})
	require.NoError(t, err)
	require.NotEmpty(t, shared.ShareToken)
	assert.Equal(t, "http://app.test/api/public/cv/"+shared.ShareToken, shared.ShareURL)

	again, err := f.svc.ShareCV(ctx, nil, u.ID, cv.ID, &dto.ShareCVRequest{IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, shared.ShareToken, again.ShareToken, "token is stable across re-shares")

	public, err := f.svc.GetSharedCV(ctx, nil, shared.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "Public", public.Title)
	assert.Empty(t, public.UserID)

	_, err = f.svc.ShareCV(ctx, nil, u.ID, cv.ID, &dto.ShareCVRequest{IsPublic: false})
	require.NoError(t, err)
	_, err = f.svc.GetSharedCV(ctx, nil, shared.ShareToken)
	assert.ErrorIs(t, err, apperrors.ErrShareLinkNotFound)
}

func TestCVService_ShareLinkExpires(t *testing.T) {
	t.Parallel()
	f := newCVFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.store, "a@example.com", models.TierFree)
	cv := f.create(t, u.ID, "Short lived")

	shared, err := f.svc.ShareCV(ctx, nil, u.ID, cv.ID, &dto.ShareCVRequest{IsPublic: true, ExpiresInDays: 1})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	_, err = f.svc.GetSharedCV(ctx, nil, shared.ShareToken)
	assert.ErrorIs(t, err, apperrors.ErrShareLinkNotFound)
}
