package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"cvbuilder_backend/internal/logger"
	"cvbuilder_backend/pkg/apperrors"
)

const (
	WebhookSignatureHeader = "X-Webhook-Signature"
	webhookSignaturePrefix = "sha256="
	maxWebhookBody         = 1 << 20
)

// SignWebhook - подпись тела в формате заголовка X-Webhook-Signature
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return webhookSignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignatureMiddleware проверяет HMAC-SHA256 подпись тела.
// Без настроенного секрета вебхуки отключены (503). Тело возвращается в запрос для хендлера.
func WebhookSignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if secret == "" {
			logger.CtxWarn(ctx, "Webhook received but no secret configured")
			apperrors.HandleError(c, apperrors.ErrWebhookDisabled)
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			apperrors.HandleError(c, apperrors.NewBadRequestError("Failed to read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		got := strings.TrimSpace(c.GetHeader(WebhookSignatureHeader))
		want := SignWebhook(secret, body)
		if got == "" || !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
			logger.CtxWarn(ctx, "Invalid webhook signature", "ip", c.ClientIP())
			apperrors.HandleError(c, apperrors.ErrInvalidWebhookSignature)
			return
		}
		c.Next()
	}
}
