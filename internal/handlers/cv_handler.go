package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cvbuilder_backend/internal/imageprocessor"
	"cvbuilder_backend/internal/services"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/pkg/apperrors"
)

type CVHandler struct {
	*BaseHandler
	cvService     services.CVService
	exportService services.ExportService
}

func NewCVHandler(base *BaseHandler, cvService services.CVService, exportService services.ExportService) *CVHandler {
	return &CVHandler{
		BaseHandler:   base,
		cvService:     cvService,
		exportService: exportService,
	}
}

func (h *CVHandler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	cvs := rg.Group("/cv")
	cvs.Use(requireAuth)
	{
		cvs.GET("", h.List)
		cvs.POST("", h.Create)
		cvs.GET("/:id", h.Get)
		cvs.PUT("/:id", h.Update)
		cvs.DELETE("/:id", h.Delete)
		cvs.POST("/:id/analyze", h.Analyze)
		cvs.POST("/:id/duplicate", h.Duplicate)
		cvs.POST("/:id/share", h.Share)
		cvs.GET("/:id/preview", h.Preview)
		cvs.GET("/:id/pdf", h.PDF)
		cvs.POST("/:id/photo", h.UploadPhoto)
		cvs.DELETE("/:id/photo", h.DeletePhoto)
	}

	public := rg.Group("/public/cv")
	{
		public.GET("/:token", h.GetShared)
	}
}

// List godoc
// @Summary Резюме пользователя
// @Tags cv
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CVListResponse
// @Router /cv [get]
func (h *CVHandler) List(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.cvService.ListCVs(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Резюме по ID
// @Tags cv
// @Produce json
// @Security BearerAuth
// @Param id path string true "CV ID"
// @Success 200 {object} dto.CVResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /cv/{id} [get]
func (h *CVHandler) Get(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.cvService.GetCV(c.Request.Context(), h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Создать резюме
// @Description На бесплатном тарифе не больше FREE_CV_LIMIT резюме
// @Tags cv
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCVRequest true "Резюме"
// @Success 201 {object} dto.CVResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /cv [post]
func (h *CVHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCVRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.cvService.CreateCV(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary Частичное обновление резюме
// @Tags cv
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "CV ID"
// @Param request body dto.UpdateCVRequest true "Изменяемые поля"
// @Success 200 {object} dto.CVResponse
// @Router /cv/{id} [put]
func (h *CVHandler) Update(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateCVRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.cvService.UpdateCV(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CVHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.cvService.DeleteCV(c.Request.Context(), h.GetDB(c), userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "CV deleted successfully"})
}

// Analyze godoc
// @Summary ATS-анализ резюме
// @Description Только для premium/enterprise. jobUrl загружается и кэшируется на сутки.
// @Tags cv
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "CV ID"
// @Param request body dto.AnalyzeCVRequest true "Описание вакансии или ссылка"
// @Success 200 {object} dto.ATSAnalysisResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /cv/{id}/analyze [post]
func (h *CVHandler) Analyze(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.AnalyzeCVRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.cvService.AnalyzeCV(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CVHandler) Duplicate(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.cvService.DuplicateCV(c.Request.Context(), h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CVHandler) Share(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ShareCVRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.cvService.ShareCV(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Preview отдает HTML резюме, ?template= переопределяет шаблон
func (h *CVHandler) Preview(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	tmpl, err := ParseTemplateQuery(c)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	html, err := h.exportService.RenderHTML(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), tmpl)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// PDF godoc
// @Summary Серверный PDF
// @Description 503, если headless Chrome недоступен: клиент собирает PDF сам
// @Tags cv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "CV ID"
// @Param template query string false "Шаблон"
// @Success 200 {file} binary
// @Failure 503 {object} apperrors.ErrorResponse
// @Router /cv/{id}/pdf [get]
func (h *CVHandler) PDF(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	tmpl, err := ParseTemplateQuery(c)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	export, err := h.exportService.RenderPDF(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), tmpl)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(export.FileName))
	if export.URL != "" {
		c.Header("X-File-URL", export.URL)
	}
	c.Data(http.StatusOK, "application/pdf", export.Data)
}

// UploadPhoto godoc
// @Summary Загрузить фото
// @Description JPEG или PNG до 5 МБ, сохраняется квадратом 400x400
// @Tags cv
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "CV ID"
// @Param photo formData file true "Фото"
// @Success 200 {object} dto.CVResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 413 {object} apperrors.ErrorResponse
// @Router /cv/{id}/photo [post]
func (h *CVHandler) UploadPhoto(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	// запас на заголовки multipart
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, imageprocessor.MaxUploadSize+64<<10)
	header, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.HandleServiceError(c, apperrors.ErrPhotoTooLarge)
			return
		}
		h.HandleServiceError(c, apperrors.NewBadRequestError("photo file is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.HandleServiceError(c, apperrors.InternalError(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imageprocessor.MaxUploadSize+1))
	if err != nil {
		h.HandleServiceError(c, apperrors.InternalError(err))
		return
	}

	resp, err := h.cvService.UploadPhoto(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), data)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CVHandler) DeletePhoto(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.cvService.DeletePhoto(c.Request.Context(), h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetShared godoc
// @Summary Публичное резюме по ссылке
// @Tags public
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} dto.CVResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /public/cv/{token} [get]
func (h *CVHandler) GetShared(c *gin.Context) {
	resp, err := h.cvService.GetSharedCV(c.Request.Context(), h.GetDB(c), c.Param("token"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
