package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/internal/model"
)

// Version - 빌드 시 -ldflags 로 주입
var Version = "dev"

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store pinger
}

func NewHealthHandler(store pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "sage incident analysis server is running",
	})
}

// Health godoc
// @Summary Health check including the incident store
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Failure 503 {object} model.HealthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.HealthResponse{Status: "degraded", Store: err.Error(), Version: Version})
		return
	}
	c.JSON(http.StatusOK, model.HealthResponse{Status: "ok", Store: "ok", Version: Version})
}

// Readiness godoc
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} model.StatusResponse
// @Router /api/v1/readiness [get]
func Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, model.StatusResponse{Status: "ready"})
}
