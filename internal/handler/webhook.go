// 웹훅 알림 채널 설정 CRUD
//
// 등록된 설정은 notify.WebhookChannel 이 incident 이벤트마다 읽어서 전송에 사용

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/model"
)

var validate = validator.New()

var errInvalidID = errors.New("invalid id")

type webhookService interface {
	ListWebhookConfigs(ctx context.Context, enabledOnly bool) ([]model.WebhookConfig, error)
	GetWebhookConfig(ctx context.Context, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, req model.WebhookConfigRequest) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, req model.WebhookConfigRequest) error
	DeleteWebhookConfig(ctx context.Context, id int) error
}

type WebhookSettingsHandler struct {
	svc webhookService
}

func NewWebhookSettingsHandler(svc webhookService) *WebhookSettingsHandler {
	return &WebhookSettingsHandler{svc: svc}
}

// ListWebhookConfigs godoc
// @Summary List webhook configs
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param enabled query bool false "Only enabled configs"
// @Success 200 {object} model.WebhookConfigListResponse
// @Failure 400,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks [get]
func (h *WebhookSettingsHandler) ListWebhookConfigs(c *gin.Context) {
	enabledOnly := false
	if raw := c.Query("enabled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "enabled must be a boolean"})
			return
		}
		enabledOnly = v
	}

	configs, err := h.svc.ListWebhookConfigs(c.Request.Context(), enabledOnly)
	if err != nil {
		webhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigListResponse{Status: "success", Data: configs})
}

// GetWebhookConfig godoc
// @Summary Get a webhook config by ID
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Webhook Config ID"
// @Success 200 {object} model.WebhookConfigResponse
// @Failure 400,404,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks/{id} [get]
func (h *WebhookSettingsHandler) GetWebhookConfig(c *gin.Context) {
	id, err := webhookID(c)
	if err != nil {
		webhookError(c, err)
		return
	}
	cfg, err := h.svc.GetWebhookConfig(c.Request.Context(), id)
	if err != nil {
		webhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigResponse{Status: "success", Data: cfg})
}

// CreateWebhookConfig godoc
// @Summary Create a webhook config
// @Description Body may use {{incident.*}}, {{event.*}} and {{alert.*}} variables.
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.WebhookConfigRequest true "Webhook config"
// @Success 201 {object} model.WebhookConfigMutationResponse
// @Failure 400,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks [post]
func (h *WebhookSettingsHandler) CreateWebhookConfig(c *gin.Context) {
	var req model.WebhookConfigRequest
	if err := bindWebhookRequest(c, &req); err != nil {
		webhookError(c, err)
		return
	}
	id, err := h.svc.CreateWebhookConfig(c.Request.Context(), req)
	if err != nil {
		webhookError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/settings/webhooks/%d", id))
	c.JSON(http.StatusCreated, model.WebhookConfigMutationResponse{Status: "success", Message: "웹훅 설정이 생성되었습니다.", ID: id})
}

// UpdateWebhookConfig godoc
// @Summary Update a webhook config
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Webhook Config ID"
// @Param request body model.WebhookConfigRequest true "Webhook config"
// @Success 200 {object} model.WebhookConfigMutationResponse
// @Failure 400,404,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks/{id} [put]
func (h *WebhookSettingsHandler) UpdateWebhookConfig(c *gin.Context) {
	id, err := webhookID(c)
	if err != nil {
		webhookError(c, err)
		return
	}
	var req model.WebhookConfigRequest
	if err := bindWebhookRequest(c, &req); err != nil {
		webhookError(c, err)
		return
	}
	if err := h.svc.UpdateWebhookConfig(c.Request.Context(), id, req); err != nil {
		webhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigMutationResponse{Status: "success", Message: "웹훅 설정이 수정되었습니다.", ID: id})
}

// DeleteWebhookConfig godoc
// @Summary Delete a webhook config
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Webhook Config ID"
// @Success 200 {object} model.WebhookConfigMutationResponse
// @Failure 400,404,500 {object} model.ErrorResponse
// @Router /api/v1/settings/webhooks/{id} [delete]
func (h *WebhookSettingsHandler) DeleteWebhookConfig(c *gin.Context) {
	id, err := webhookID(c)
	if err != nil {
		webhookError(c, err)
		return
	}
	if err := h.svc.DeleteWebhookConfig(c.Request.Context(), id); err != nil {
		webhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.WebhookConfigMutationResponse{Status: "success", Message: "웹훅 설정이 삭제되었습니다.", ID: id})
}

// badRequestError - 클라이언트 입력 오류 표시
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func webhookID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, badRequestError{errInvalidID}
	}
	return id, nil
}

// bindWebhookRequest - JSON 파싱 후 url, method 검증
func bindWebhookRequest(c *gin.Context, req *model.WebhookConfigRequest) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return badRequestError{err}
	}
	if err := validate.Struct(req); err != nil {
		return badRequestError{err}
	}
	return nil
}

func webhookError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, model.ErrorResponse{Error: err.Error()})
}
