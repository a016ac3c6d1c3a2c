package handlers

import (
	"github.com/andresuchdata/stockcount/internal/api/response"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/gin-gonic/gin"
)

const defaultAlertLimit = 50

type DashboardHandler struct {
	dashboard *service.DashboardService
	alerts    *service.AlertRecorder
	now       service.Clock
}

func NewDashboardHandler(dashboard *service.DashboardService, alerts *service.AlertRecorder, now service.Clock) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, alerts: alerts, now: now}
}

// GetDashboard aggregates the report for ?date or today.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	asOf, err := dateParam(c, "date", h.now)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.dashboard.Aggregate(c.Request.Context(), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ScanAlerts records one event per currently low or high item.
func (h *DashboardHandler) ScanAlerts(c *gin.Context) {
	events, err := h.alerts.Scan(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"recorded": len(events), "events": events})
}

func (h *DashboardHandler) ListAlerts(c *gin.Context) {
	limit, err := intParam(c, "limit", defaultAlertLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.alerts.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}
