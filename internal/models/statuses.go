package models

type UserRole string
type SubscriptionTier string
type SubscriptionStatus string
type SubscriptionPlan string
type CVTemplate string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"

	TierFree       SubscriptionTier = "free"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"

	SubscriptionStatusNone      SubscriptionStatus = "none"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"

	PlanMonthly SubscriptionPlan = "monthly"
	PlanYearly  SubscriptionPlan = "yearly"

	TemplateModern       CVTemplate = "modern"
	TemplateClassic      CVTemplate = "classic"
	TemplateProfessional CVTemplate = "professional"
	TemplateCreative     CVTemplate = "creative"
	TemplateMinimal      CVTemplate = "minimal"
	TemplateExecutive    CVTemplate = "executive"
	TemplateTechnical    CVTemplate = "technical"
)

// CVTemplates - все допустимые шаблоны в порядке отображения
var CVTemplates = []CVTemplate{
	TemplateModern,
	TemplateClassic,
	TemplateProfessional,
	TemplateCreative,
	TemplateMinimal,
	TemplateExecutive,
	TemplateTechnical,
}

func (t CVTemplate) IsValid() bool {
	for _, v := range CVTemplates {
		if v == t {
			return true
		}
	}
	return false
}

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierPremium, TierEnterprise:
		return true
	}
	return false
}

func (p SubscriptionPlan) IsValid() bool {
	return p == PlanMonthly || p == PlanYearly
}
