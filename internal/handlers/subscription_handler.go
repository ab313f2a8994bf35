package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder_backend/internal/services"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/pkg/apperrors"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
}

func NewSubscriptionHandler(base *BaseHandler, subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
	}
}

// RegisterRoutes - webhook без JWT, но за проверкой подписи
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup, requireAuth, verifySignature gin.HandlerFunc) {
	subs := rg.Group("/subscriptions")
	{
		subs.GET("", requireAuth, h.GetSubscription)
		subs.POST("/subscribe", requireAuth, h.Subscribe)
		subs.POST("/cancel", requireAuth, h.Cancel)
		subs.POST("/webhook", verifySignature, h.Webhook)
	}
}

// GetSubscription godoc
// @Summary Текущая подписка
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SubscriptionResponse
// @Router /subscriptions [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.subscriptionService.GetSubscription(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Subscribe godoc
// @Summary Оформить подписку
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubscribeRequest true "План"
// @Success 200 {object} dto.SubscriptionResponse
// @Router /subscriptions/subscribe [post]
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubscribeRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.subscriptionService.Subscribe(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.subscriptionService.Cancel(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook godoc
// @Summary Событие платежного провайдера
// @Description Тело подписывается HMAC-SHA256, заголовок X-Webhook-Signature: sha256=<hex>. Повтор события возвращает status=duplicate.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "sha256=<hex>"
// @Success 200 {object} dto.WebhookResult
// @Failure 401 {object} apperrors.ErrorResponse
// @Router /subscriptions/webhook [post]
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.HandleServiceError(c, apperrors.NewBadRequestError("Failed to read request body"))
		return
	}

	var result *dto.WebhookResult
	result, err = h.subscriptionService.HandleWebhook(c.Request.Context(), h.GetDB(c), payload)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
