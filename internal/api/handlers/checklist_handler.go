package handlers

import (
	"github.com/andresuchdata/stockcount/internal/api/response"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/gin-gonic/gin"
)

// CountHandler serves the daily checklist and recount submission.
type CountHandler struct {
	schedule  *service.ScheduleService
	recounts  *service.RecountService
	dashboard *service.DashboardService
	now       service.Clock
}

func NewCountHandler(schedule *service.ScheduleService, recounts *service.RecountService, dashboard *service.DashboardService, now service.Clock) *CountHandler {
	return &CountHandler{schedule: schedule, recounts: recounts, dashboard: dashboard, now: now}
}

type recountRequest struct {
	Items []service.Submission `json:"items"`
}

// GetChecklist returns today's due items for the caller.
func (h *CountHandler) GetChecklist(c *gin.Context) {
	list, err := h.schedule.TodayChecklist(c.Request.Context(), actor(c).StaffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// SubmitRecounts applies a batch of counted quantities.
func (h *CountHandler) SubmitRecounts(c *gin.Context) {
	var req recountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.recounts.Submit(c.Request.Context(), actor(c).StaffID, req.Items)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// GetProgress reports how much of the given day's checklist is done.
func (h *CountHandler) GetProgress(c *gin.Context) {
	day, err := dateParam(c, "date", h.now)
	if err != nil {
		response.Error(c, err)
		return
	}
	progress, err := h.dashboard.CheckProgress(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, progress)
}
