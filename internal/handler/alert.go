// 알림 수신 핸들러
//
// 요청 흐름:
//  1. POST /api/v1/alerts: AlertInput 하나를 동기 분석, 진단 보고서 반환
//  2. POST /webhook/alertmanager: Alertmanager 페이로드의 firing 알림마다 백그라운드 분석 시작 (202)

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
)

type analyzer interface {
	Analyze(ctx context.Context, alert model.AlertInput) (string, *model.DiagnosticReport, error)
}

type alertIntake interface {
	ValidateAlert(alert model.AlertInput) error
	ProcessWebhook(webhook model.AlertmanagerWebhook) (accepted, skipped int)
}

type AlertHandler struct {
	analyzer analyzer
	intake   alertIntake
	logger   *zap.Logger
}

func NewAlertHandler(a analyzer, intake alertIntake, logger *zap.Logger) *AlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertHandler{analyzer: a, intake: intake, logger: logger.Named("alert")}
}

// AnalyzeAlert godoc
// @Summary Analyze an alert
// @Description Runs the three-stage analysis synchronously. The incident is queryable even when analysis fails.
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.AlertInput true "Alert"
// @Success 200 {object} model.AnalyzeResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.AnalyzeErrorResponse
// @Router /api/v1/alerts [post]
func (h *AlertHandler) AnalyzeAlert(c *gin.Context) {
	var alert model.AlertInput
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.intake.ValidateAlert(alert); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	id, report, err := h.analyzer.Analyze(c.Request.Context(), alert)
	if err != nil {
		h.logger.Warn("analysis failed", zap.String("incident_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.AnalyzeErrorResponse{
			Status:     "error",
			IncidentID: id,
			Error:      err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.AnalyzeResponse{
		IncidentID:       id,
		Status:           model.StatusCompleted,
		DiagnosticReport: report,
	})
}

// AlertmanagerWebhook godoc
// @Summary Receive Alertmanager webhook
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body model.AlertmanagerWebhook true "Alertmanager payload"
// @Success 202 {object} model.AlertAcceptedResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /webhook/alertmanager [post]
func (h *AlertHandler) AlertmanagerWebhook(c *gin.Context) {
	var webhook model.AlertmanagerWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		h.logger.Warn("failed to parse webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}

	// status: firing 또는 resolved, receiver: Alertmanager receiver 이름
	h.logger.Info("received alertmanager webhook",
		zap.String("status", webhook.Status),
		zap.Int("alert_count", len(webhook.Alerts)),
		zap.String("receiver", webhook.Receiver),
	)

	accepted, skipped := h.intake.ProcessWebhook(webhook)
	c.JSON(http.StatusAccepted, model.AlertAcceptedResponse{
		Status:   "accepted",
		Accepted: accepted,
		Skipped:  skipped,
	})
}
