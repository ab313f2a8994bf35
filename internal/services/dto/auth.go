package dto

import (
	"time"

	"cvbuilder_backend/internal/models"
)

// Auth DTOs

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// ForgotPasswordResponse - ResetToken заполняется только в демо-режиме
type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

type UserResponse struct {
	ID                    string                    `json:"id"`
	Name                  string                    `json:"name"`
	Email                 string                    `json:"email"`
	Role                  models.UserRole           `json:"role"`
	SubscriptionTier      models.SubscriptionTier   `json:"subscriptionTier"`
	SubscriptionStatus    models.SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time                `json:"subscriptionExpiresAt,omitempty"`
	IsVerified            bool                      `json:"isVerified"`
	CVsCreated            int                       `json:"cvsCreated"`
	Active                bool                      `json:"active"`
	LastLoginAt           *time.Time                `json:"lastLoginAt,omitempty"`
	CreatedAt             time.Time                 `json:"createdAt"`
}

// NewUserResponse - пользователь без чувствительных полей
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 u.Email,
		Role:                  u.Role,
		SubscriptionTier:      u.SubscriptionTier,
		SubscriptionStatus:    u.SubscriptionStatus,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		IsVerified:            u.IsVerified,
		CVsCreated:            u.CVsCreated,
		Active:                u.Active,
		LastLoginAt:           u.LastLoginAt,
		CreatedAt:             u.CreatedAt,
	}
}
