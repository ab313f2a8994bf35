package apperrors

import (
	"log/slog"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler - обработчик ошибок для Gin
type GinErrorHandler struct {
	Debug bool
}

var debugMode atomic.Bool

// SetDebug включает вывод причин внутренних ошибок в ответе (только для development)
func SetDebug(debug bool) {
	debugMode.Store(debug)
}

// HandleGinError - основная логика обработки ошибок для Gin
func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}

	if appErr.HTTPCode >= 500 {
		slog.ErrorContext(c.Request.Context(), "server error",
			"code", appErr.Code,
			"domain", appErr.Domain,
			"cause", errString(appErr.Unwrap()),
			"path", c.Request.URL.Path,
		)
		if h.Debug && appErr.Err != nil && appErr.Code == CodeInternalError {
			appErr = appErr.WithDetails(gin.H{"cause": appErr.Err.Error()})
		}
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError - быстрая функция-помощник для Gin
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: debugMode.Load()}
	handler.HandleGinError(c, err)
}

// AsAppError - пытается преобразовать error в *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HandleValidationError - ошибки биндинга gin в нашем формате
func HandleValidationError(c *gin.Context, err error) {
	HandleError(c, ValidationError(gin.H{"body": err.Error()}))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
