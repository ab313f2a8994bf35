package apperrors

import (
	"net/http"
)

/*
Предопределенные ошибки бизнес-логики и домена.
Сервисы возвращают их напрямую, хэндлеры отдают как есть через HandleError.
*/

// =========================================================================
// Auth
// =========================================================================

// ErrInvalidCredentials - одинаковый ответ для неизвестного email и неверного пароля,
// чтобы по ответу нельзя было узнать, существует ли пользователь.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusBadRequest,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"User with this email already exists",
	http.StatusBadRequest,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"auth",
	"Password must be at least 6 characters long",
	http.StatusBadRequest,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInvalidResetToken = New(
	CodeInvalidToken,
	"auth",
	"Password reset token is invalid or has expired",
	http.StatusBadRequest,
)

var ErrInvalidVerificationToken = New(
	CodeInvalidToken,
	"auth",
	"Verification token is invalid",
	http.StatusBadRequest,
)

var ErrWrongPassword = New(
	CodeInvalidCredentials,
	"auth",
	"Current password is incorrect",
	http.StatusBadRequest,
)

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

// =========================================================================
// CV
// =========================================================================

var ErrCVNotFound = New(
	CodeNotFound,
	"cv",
	"CV not found",
	http.StatusNotFound,
)

var ErrCVForbidden = New(
	CodeForbidden,
	"cv",
	"You do not have access to this CV",
	http.StatusForbidden,
)

// ErrCVLimitReached - бесплатный тариф исчерпал лимит резюме
var ErrCVLimitReached = New(
	CodeLimitExceeded,
	"cv",
	"Free plan CV limit reached. Upgrade to premium to create more CVs",
	http.StatusForbidden,
)

var ErrPremiumRequired = New(
	CodePremiumRequired,
	"subscription",
	"This feature requires a premium subscription",
	http.StatusForbidden,
)

var ErrJobDescriptionRequired = New(
	CodeValidationFailed,
	"cv",
	"Either jobDescription or jobUrl is required",
	http.StatusBadRequest,
)

var ErrJobDescriptionFetch = New(
	CodeExternalServiceError,
	"cv",
	"Failed to fetch job description from the given URL",
	http.StatusBadGateway,
)

var ErrShareLinkNotFound = New(
	CodeNotFound,
	"cv",
	"Shared CV not found or link has expired",
	http.StatusNotFound,
)

var ErrInvalidPhoto = New(
	CodeValidationFailed,
	"cv",
	"Photo must be a JPEG or PNG image of at least 64x64 pixels",
	http.StatusBadRequest,
)

var ErrPhotoTooLarge = New(
	CodeLimitExceeded,
	"cv",
	"Photo file is too large",
	http.StatusRequestEntityTooLarge,
)

var ErrPDFUnavailable = New(
	CodeServiceUnavailable,
	"export",
	"PDF rendering is currently unavailable",
	http.StatusServiceUnavailable,
)

// =========================================================================
// Subscription
// =========================================================================

var ErrSubscriptionNotActive = New(
	CodeInvalidStatus,
	"subscription",
	"There is no active subscription to cancel",
	http.StatusBadRequest,
)

var ErrInvalidPlan = New(
	CodeValidationFailed,
	"subscription",
	"Unknown subscription plan",
	http.StatusBadRequest,
)

var ErrInvalidWebhookSignature = New(
	CodeInvalidSignature,
	"webhook",
	"Invalid webhook signature",
	http.StatusUnauthorized,
)

var ErrWebhookDisabled = New(
	CodeServiceUnavailable,
	"webhook",
	"Webhook endpoint is not configured",
	http.StatusServiceUnavailable,
)

// ErrInvalidWebhookTier - created/renewed не могут назначать бесплатный тариф
var ErrInvalidWebhookTier = New(
	CodeValidationFailed,
	"webhook",
	"Webhook event cannot activate the free tier",
	http.StatusBadRequest,
)

var ErrUnknownWebhookEvent = New(
	CodeInvalidOperation,
	"webhook",
	"Unknown webhook event type",
	http.StatusBadRequest,
)
