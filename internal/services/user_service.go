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

type UserService interface {
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, db *gorm.DB, userID string, req *dto.DeleteAccountRequest) error
}

type userService struct {
	userRepo repositories.UserRepository
	cvRepo   repositories.CVRepository
	policy   auth.PlanPolicy
	files    FileStore
	now      Clock
}

func NewUserService(
	userRepo repositories.UserRepository,
	cvRepo repositories.CVRepository,
	policy auth.PlanPolicy,
	files FileStore,
) UserService {
	return &userService{
		userRepo: userRepo,
		cvRepo:   cvRepo,
		policy:   policy,
		files:    files,
		now:      time.Now,
	}
}

func (s *userService) getUser(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*dto.ProfileResponse, error) {
	user, err := s.getUser(db, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.cvRepo.CountByUser(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	now := s.now()
	return &dto.ProfileResponse{
		User: dto.NewUserResponse(user),
		Stats: dto.ProfileStats{
			CVCount:    count,
			CVLimit:    s.policy.CVLimit(user, now),
			CanAnalyze: s.policy.CanAnalyze(user, now),
		},
	}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(db, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		newEmail := normalizeEmail(*req.Email)
		if newEmail != user.Email {
			existing, err := s.userRepo.FindByEmail(db, newEmail)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, apperrors.ErrEmailAlreadyExists
			case err != nil && !errors.Is(err, repositories.ErrUserNotFound):
				return nil, apperrors.InternalError(err)
			}
			fields["email"] = newEmail
			// новый адрес нужно подтвердить заново
			fields["is_verified"] = false
		}
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(db, userID, fields); err != nil {
			if errors.Is(err, repositories.ErrUserAlreadyExists) {
				return nil, apperrors.ErrEmailAlreadyExists
			}
			return nil, apperrors.InternalError(err)
		}
		if user, err = s.getUser(db, userID); err != nil {
			return nil, err
		}
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *userService) ChangePassword(ctx context.Context, db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.getUser(db, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.ErrWrongPassword
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.userRepo.UpdateFields(db, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Password changed", "user_id", userID)
	return nil
}

// DeleteAccount удаляет пользователя и все его резюме, затем чистит PDF в хранилище
func (s *userService) DeleteAccount(ctx context.Context, db *gorm.DB, userID string, req *dto.DeleteAccountRequest) error {
	user, err := s.getUser(db, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return apperrors.ErrWrongPassword
	}

	keys, err := s.cvRepo.FileKeysByUser(db, userID)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.userRepo.Delete(db, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.InternalError(err)
	}

	if s.files != nil {
		for _, key := range keys {
			if err := s.files.Delete(ctx, key); err != nil {
				logger.CtxWarn(ctx, "Failed to delete stored file", "key", key, "error", err)
			}
		}
	}

	logger.CtxInfo(ctx, "Account deleted", "user_id", userID, "files_removed", len(keys))
	return nil
}
