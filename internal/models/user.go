package models

import "time"

type User struct {
	BaseModel
	Name         string   `gorm:"size:100;not null" json:"name"`
	Email        string   `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	SubscriptionTier      SubscriptionTier   `gorm:"type:varchar(20);not null;default:'free'" json:"subscriptionTier"`
	SubscriptionStatus    SubscriptionStatus `gorm:"type:varchar(20);not null;default:'none'" json:"subscriptionStatus"`
	SubscriptionPlan      SubscriptionPlan   `gorm:"type:varchar(20)" json:"subscriptionPlan,omitempty"`
	SubscriptionExpiresAt *time.Time         `json:"subscriptionExpiresAt,omitempty"`

	// Хранится SHA-256 от токена, сам токен уходит только в письмо
	ResetToken        string     `gorm:"size:64;index" json:"-"`
	ResetTokenExp     *time.Time `json:"-"`
	VerificationToken string     `gorm:"size:64;index" json:"-"`
	IsVerified        bool       `gorm:"default:false" json:"isVerified"`

	CVsCreated  int        `gorm:"column:cvs_created;not null;default:0" json:"cvsCreated"`
	Active      bool       `gorm:"not null;default:true" json:"active"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	// Relations
	CVs []CV `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasPremium - платный тариф, срок которого не истек на момент now.
// Отмененная подписка остается в силе до конца оплаченного периода.
func (u *User) HasPremium(now time.Time) bool {
	if u.SubscriptionTier == TierFree || u.SubscriptionTier == "" {
		return false
	}
	if u.SubscriptionStatus == SubscriptionStatusExpired {
		return false
	}
	return u.SubscriptionExpiresAt == nil || u.SubscriptionExpiresAt.After(now)
}

// EffectiveTier - тариф с учетом истечения срока
func (u *User) EffectiveTier(now time.Time) SubscriptionTier {
	if u.HasPremium(now) {
		return u.SubscriptionTier
	}
	return TierFree
}
