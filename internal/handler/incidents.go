package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/internal/model"
	"github.com/kube-rca/sage/internal/store"
)

type incidentService interface {
	Get(ctx context.Context, id string) (*model.Incident, error)
	List(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error)
	Delete(ctx context.Context, id string) error
}

type IncidentHandler struct {
	svc incidentService
}

func NewIncidentHandler(svc incidentService) *IncidentHandler {
	return &IncidentHandler{svc: svc}
}

// GetIncidents godoc
// @Summary List incidents
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" Enums(pending, context_collected, context_enriched, completed, failed)
// @Success 200 {object} model.IncidentListEnvelope
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/incidents [get]
func (h *IncidentHandler) GetIncidents(c *gin.Context) {
	incidents, err := h.svc.List(c.Request.Context(), model.IncidentStatus(c.Query("status")))
	if err != nil {
		if errors.Is(err, store.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	items := make([]model.IncidentListItem, 0, len(incidents))
	for _, inc := range incidents {
		items = append(items, inc.ListItem())
	}
	c.JSON(http.StatusOK, model.IncidentListEnvelope{Status: "success", Data: items})
}

// GetIncidentDetail godoc
// @Summary Get incident detail
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} model.IncidentDetailEnvelope
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/incidents/{id} [get]
func (h *IncidentHandler) GetIncidentDetail(c *gin.Context) {
	inc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(incidentErrorStatus(err), gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, model.IncidentDetailEnvelope{Status: "success", Data: inc})
}

// DeleteIncident godoc
// @Summary Delete incident (administrative)
// @Tags incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} model.IncidentDeleteResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/incidents/{id} [delete]
func (h *IncidentHandler) DeleteIncident(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(incidentErrorStatus(err), gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, model.IncidentDeleteResponse{
		Status:     "success",
		Message:    "Incident 가 삭제되었습니다.",
		IncidentID: id,
	})
}

func incidentErrorStatus(err error) int {
	if errors.Is(err, store.ErrIncidentNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
