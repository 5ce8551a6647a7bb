package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dashboard "bizdesk-system/internal/dashboard/handler"
)

type DashboardHTTPHandler struct {
	dashboard *dashboard.DashboardHandler
}

func NewDashboardHTTPHandler(dashboardHandler *dashboard.DashboardHandler) *DashboardHTTPHandler {
	return &DashboardHTTPHandler{
		dashboard: dashboardHandler,
	}
}

func (h *DashboardHTTPHandler) GetDashboard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	data, err := h.dashboard.GetDashboard(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Dashboard retrieved successfully", data))
}
