package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/testutil"
	"cvbuilder_backend/pkg/apperrors"
)

func newUserFixture(t *testing.T) (*userService, *testutil.Store, *fakeFiles) {
	t.Helper()
	store := testutil.NewStore()
	files := newFakeFiles()
	svc := NewUserService(store.Users(), store.CVs(), auth.NewPlanPolicy(2), files).(*userService)
	svc.now = fixedClock
	return svc, store, files
}

func addCV(t *testing.T, store *testutil.Store, userID, title string) *models.CV {
	t.Helper()
	cv := &models.CV{UserID: userID, Title: title, Template: models.TemplateModern}
	require.NoError(t, store.CVs().CreateWithinLimit(nil, cv, 0))
	return cv
}

func TestUserService_ProfileStats(t *testing.T) {
	t.Parallel()
	svc, store, _ := newUserFixture(t)
	ctx := context.Background()

	free := seedUser(t, store, "free@example.com", models.TierFree)
	addCV(t, store, free.ID, "One")

	profile, err := svc.GetProfile(ctx, nil, free.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.Stats.CVCount)
	assert.Equal(t, 2, profile.Stats.CVLimit)
	assert.False(t, profile.Stats.CanAnalyze)

	premium := seedUser(t, store, "pro@example.com", models.TierPremium)
	profile, err = svc.GetProfile(ctx, nil, premium.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, profile.Stats.CVLimit)
	assert.True(t, profile.Stats.CanAnalyze)
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()
	svc, store, _ := newUserFixture(t)
	ctx := context.Background()
	u := seedUser(t, store, "ann@example.com", models.TierFree)
	require.NoError(t, store.Users().UpdateFields(nil, u.ID, map[string]interface{}{"is_verified": true}))
	seedUser(t, store, "taken@example.com", models.TierFree)

	name := " Ann Lee "
	resp, err := svc.UpdateProfile(ctx, nil, u.ID, &dto.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", resp.Name)
	assert.True(t, resp.IsVerified)

	taken := "TAKEN@example.com"
	_, err = svc.UpdateProfile(ctx, nil, u.ID, &dto.UpdateProfileRequest{Email: &taken})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	fresh := "ann.lee@example.com"
	resp, err = svc.UpdateProfile(ctx, nil, u.ID, &dto.UpdateProfileRequest{Email: &fresh})
	require.NoError(t, err)
	assert.Equal(t, "ann.lee@example.com", resp.Email)
	assert.False(t, resp.IsVerified, "changed email must be verified again")
}

func TestUserService_ChangePassword(t *testing.T) {
	t.Parallel()
	svc, store, _ := newUserFixture(t)
	ctx := context.Background()
	u := seedUser(t, store, "ann@example.com", models.TierFree)

	err := svc.ChangePassword(ctx, nil, u.ID, &dto.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpass1"})
	assert.ErrorIs(t, err, apperrors.ErrWrongPassword)

	err = svc.ChangePassword(ctx, nil, u.ID, &dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "x"})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, nil, u.ID, &dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newpass1"}))

	stored, err := store.Users().FindByID(nil, u.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("newpass1", stored.PasswordHash))
}

func TestUserService_DeleteAccountCascades(t *testing.T) {
	t.Parallel()
	svc, store, files := newUserFixture(t)
	ctx := context.Background()
	u := seedUser(t, store, "ann@example.com", models.TierFree)
	other := seedUser(t, store, "bob@example.com", models.TierFree)

	withPDF := addCV(t, store, u.ID, "Exported")
	addCV(t, store, u.ID, "Draft")
	kept := addCV(t, store, other.ID, "Bob's")

	key := "exports/" + u.ID + "/" + withPDF.ID + ".pdf"
	require.NoError(t, files.Save(ctx, key, strings.NewReader("%PDF"), "application/pdf"))
	require.NoError(t, store.CVs().UpdateFields(nil, withPDF.ID, map[string]interface{}{
		"metadata": datatypes.NewJSONType(models.CVMetadata{PDFKey: key}),
	}))

	err := svc.DeleteAccount(ctx, nil, u.ID, &dto.DeleteAccountRequest{Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrWrongPassword)
	assert.Equal(t, 2, store.CVCount(u.ID))

	require.NoError(t, svc.DeleteAccount(ctx, nil, u.ID, &dto.DeleteAccountRequest{Password: "secret123"}))

	assert.Equal(t, 0, store.CVCount(u.ID))
	assert.False(t, files.has(key))
	_, err = store.Users().FindByID(nil, u.ID)
	assert.Error(t, err)

	_, err = store.CVs().FindByID(nil, kept.ID)
	assert.NoError(t, err, "other users' CVs are untouched")

	_, err = svc.GetProfile(ctx, nil, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
