package dto

// Profile DTOs

type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type ProfileResponse struct {
	User  UserResponse `json:"user"`
	Stats ProfileStats `json:"stats"`
}

type ProfileStats struct {
	CVCount    int64 `json:"cvCount"`
	CVLimit    int   `json:"cvLimit"` // 0 - без ограничений
	CanAnalyze bool  `json:"canAnalyze"`
}
