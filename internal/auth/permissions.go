package auth

import (
	"time"

	"cvbuilder_backend/internal/models"
)

// Возможности тарифов
const (
	FeatureUnlimitedCVs = "unlimited_cvs"
	FeatureATSAnalysis  = "ats_analysis"
	FeaturePDFExport    = "pdf_export"
	FeatureShareLinks   = "share_links"
	FeatureAllTemplates = "all_templates"
)

// Features - список возможностей по тарифу
var Features = map[models.SubscriptionTier][]string{
	models.TierFree: {
		FeaturePDFExport,
		FeatureShareLinks,
		FeatureAllTemplates,
	},
	models.TierPremium: {
		FeatureUnlimitedCVs,
		FeatureATSAnalysis,
		FeaturePDFExport,
		FeatureShareLinks,
		FeatureAllTemplates,
	},
	models.TierEnterprise: {
		FeatureUnlimitedCVs,
		FeatureATSAnalysis,
		FeaturePDFExport,
		FeatureShareLinks,
		FeatureAllTemplates,
	},
}

// HasFeature проверяет, входит ли возможность в тариф
func HasFeature(tier models.SubscriptionTier, feature string) bool {
	for _, f := range Features[tier] {
		if f == feature {
			return true
		}
	}
	return false
}

// PlanPolicy - лимиты тарифов, зависящие от конфигурации
type PlanPolicy struct {
	FreeCVLimit int
}

func NewPlanPolicy(freeCVLimit int) PlanPolicy {
	return PlanPolicy{FreeCVLimit: freeCVLimit}
}

// CVLimit - сколько резюме может иметь пользователь. 0 означает без ограничений.
func (p PlanPolicy) CVLimit(user *models.User, now time.Time) int {
	if HasFeature(user.EffectiveTier(now), FeatureUnlimitedCVs) {
		return 0
	}
	return p.FreeCVLimit
}

// CanAnalyze - доступен ли ATS-анализ
func (p PlanPolicy) CanAnalyze(user *models.User, now time.Time) bool {
	return HasFeature(user.EffectiveTier(now), FeatureATSAnalysis)
}
