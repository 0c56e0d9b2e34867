package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/internal/config"
	"go.uber.org/zap"
)

// Handlers - 라우터에 등록할 핸들러 묶음
// Knowledge, Webhooks 가 nil 이면 해당 경로는 등록하지 않음 (memory 저장소)
type Handlers struct {
	Alert     *AlertHandler
	Incident  *IncidentHandler
	Health    *HealthHandler
	Knowledge *KnowledgeHandler
	Webhooks  *WebhookSettingsHandler

	// GET /metrics
	Metrics http.Handler
}

func NewRouter(h Handlers, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(cfg.AllowedOrigins, cfg.AllowCredentials))

	r.GET("/ping", Ping)
	r.GET("/", Root)
	r.GET("/openapi.json", OpenAPIDoc)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// Alertmanager 는 토큰 없이 호출
	r.POST("/webhook/alertmanager", h.Alert.AlertmanagerWebhook)

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health.Health)
	v1.GET("/readiness", Readiness)

	api := v1.Group("", AuthMiddleware(cfg.AuthJWTSecret))
	api.POST("/alerts", h.Alert.AnalyzeAlert)
	api.GET("/incidents", h.Incident.GetIncidents)
	api.GET("/incidents/:id", h.Incident.GetIncidentDetail)
	api.DELETE("/incidents/:id", h.Incident.DeleteIncident)

	if h.Knowledge != nil {
		api.POST("/documents", h.Knowledge.UploadDocument)
		api.GET("/documents/search", h.Knowledge.SearchDocuments)
	}
	if h.Webhooks != nil {
		api.GET("/settings/webhooks", h.Webhooks.ListWebhookConfigs)
		api.POST("/settings/webhooks", h.Webhooks.CreateWebhookConfig)
		api.GET("/settings/webhooks/:id", h.Webhooks.GetWebhookConfig)
		api.PUT("/settings/webhooks/:id", h.Webhooks.UpdateWebhookConfig)
		api.DELETE("/settings/webhooks/:id", h.Webhooks.DeleteWebhookConfig)
	}
	return r
}
