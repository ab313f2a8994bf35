package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder_backend/internal/models"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	issued := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, expiresAt, err := m.GenerateToken("user-1", models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour), expiresAt)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.UserRoleAdmin, claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	issued := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, _, err := m.GenerateToken("user-1", models.UserRoleUser)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_RejectsForeignAndUnsignedTokens(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	foreign, _, err := NewTokenManager("other", time.Hour).GenerateToken("user-1", models.UserRoleUser)
	require.NoError(t, err)
	_, err = m.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("secret124", hash))

	assert.ErrorIs(t, ValidatePassword("12345"), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("123456"))
}

func TestSecureTokens(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecureToken(0)
	assert.Error(t, err)

	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, a, HashToken(a))
	assert.Len(t, HashToken(a), 64)
}

func TestPlanPolicy(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	policy := NewPlanPolicy(2)

	tests := []struct {
		name       string
		user       models.User
		limit      int
		canAnalyze bool
	}{
		{"free", models.User{SubscriptionTier: models.TierFree}, 2, false},
		{"premium active", models.User{
			SubscriptionTier: models.TierPremium, SubscriptionStatus: models.SubscriptionStatusActive, SubscriptionExpiresAt: &future,
		}, 0, true},
		{"premium cancelled but paid until future", models.User{
			SubscriptionTier: models.TierPremium, SubscriptionStatus: models.SubscriptionStatusCancelled, SubscriptionExpiresAt: &future,
		}, 0, true},
		{"premium lapsed", models.User{
			SubscriptionTier: models.TierPremium, SubscriptionStatus: models.SubscriptionStatusActive, SubscriptionExpiresAt: &past,
		}, 2, false},
		{"enterprise marked expired", models.User{
			SubscriptionTier: models.TierEnterprise, SubscriptionStatus: models.SubscriptionStatusExpired,
		}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.limit, policy.CVLimit(&tt.user, now))
			assert.Equal(t, tt.canAnalyze, policy.CanAnalyze(&tt.user, now))
		})
	}
}

func TestHasFeature(t *testing.T) {
	assert.True(t, HasFeature(models.TierFree, FeaturePDFExport))
	assert.False(t, HasFeature(models.TierFree, FeatureATSAnalysis))
	assert.True(t, HasFeature(models.TierEnterprise, FeatureUnlimitedCVs))
	assert.False(t, HasFeature("unknown", FeaturePDFExport))
}
