package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"cvbuilder_backend/internal/auth"
	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/repositories"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/pkg/apperrors"
)

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent"

type AuthService interface {
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	GetCurrentUser(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error)
	ForgotPassword(ctx context.Context, db *gorm.DB, req *dto.ForgotPasswordRequest) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, db *gorm.DB, req *dto.VerifyEmailRequest) error
}

type AuthConfig struct {
	// ExposeResetToken - демо-режим: токен сброса возвращается в ответе
	ExposeResetToken bool
	ResetTokenTTL    time.Duration
}

type authService struct {
	userRepo repositories.UserRepository
	tokens   *auth.TokenManager
	mailer   EmailService
	cfg      AuthConfig
	now      Clock
}

func NewAuthService(
	userRepo repositories.UserRepository,
	tokens *auth.TokenManager,
	mailer EmailService,
	cfg AuthConfig,
) AuthService {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register - регистрация и выдача токена
func (s *authService) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	verificationToken, err := auth.GenerateSecureToken(16)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Name:               strings.TrimSpace(req.Name),
		Email:              normalizeEmail(req.Email),
		PasswordHash:       hash,
		Role:               models.UserRoleUser,
		SubscriptionTier:   models.TierFree,
		SubscriptionStatus: models.SubscriptionStatusNone,
		VerificationToken:  verificationToken,
		Active:             true,
	}

	if err := s.userRepo.Create(db, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "User registered", "user_id", user.ID)

	if s.mailer != nil {
		s.mailer.SendVerification(ctx, user, verificationToken)
		s.mailer.SendWelcome(ctx, user)
	}

	return s.issue(user)
}

// Login - одинаковая ошибка для неизвестного email, неверного пароля и заблокированного аккаунта
func (s *authService) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) || !user.Active {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.userRepo.UpdateFields(db, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		logger.CtxWarn(ctx, "Failed to update last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	return s.issue(user)
}

func (s *authService) GetCurrentUser(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// ForgotPassword отвечает одинаково независимо от существования email.
// В базе хранится только хэш токена.
func (s *authService) ForgotPassword(ctx context.Context, db *gorm.DB, req *dto.ForgotPasswordRequest) (*dto.ForgotPasswordResponse, error) {
	resp := &dto.ForgotPasswordResponse{Message: forgotPasswordMessage}

	user, err := s.userRepo.FindByEmail(db, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return resp, nil
		}
		return nil, apperrors.InternalError(err)
	}
	if !user.Active {
		return resp, nil
	}

	token, err := auth.GenerateSecureToken(32)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	expires := s.now().Add(s.cfg.ResetTokenTTL)

	err = s.userRepo.UpdateFields(db, user.ID, map[string]interface{}{
		"reset_token":     auth.HashToken(token),
		"reset_token_exp": expires,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if s.mailer != nil {
		s.mailer.SendPasswordReset(ctx, user, token, s.cfg.ResetTokenTTL)
	}
	if s.cfg.ExposeResetToken {
		resp.ResetToken = token
	}
	return resp, nil
}

func (s *authService) ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return apperrors.ErrWeakPassword
	}

	user, err := s.userRepo.FindByResetToken(db, auth.HashToken(req.Token))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.InternalError(err)
	}
	if user.ResetTokenExp == nil || !user.ResetTokenExp.After(s.now()) {
		return apperrors.ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperrors.InternalError(err)
	}

	err = s.userRepo.UpdateFields(db, user.ID, map[string]interface{}{
		"password_hash":   hash,
		"reset_token":     "",
		"reset_token_exp": nil,
	})
	if err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Password reset", "user_id", user.ID)
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, db *gorm.DB, req *dto.VerifyEmailRequest) error {
	user, err := s.userRepo.FindByVerificationToken(db, req.Token)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrInvalidVerificationToken
		}
		return apperrors.InternalError(err)
	}

	err = s.userRepo.UpdateFields(db, user.ID, map[string]interface{}{
		"is_verified":        true,
		"verification_token": "",
	})
	if err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *authService) issue(user *models.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	}, nil
}
