package handler

import (
	"net/http"
	"strconv"

	"dotaciones/internal/middleware"
	"dotaciones/internal/service"
	"dotaciones/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	dashboard := router.Group("/api/dashboard")
	dashboard.Use(auth.RequirePermission("dashboard.read"))
	{
		dashboard.GET("/summary", h.Summary)
		dashboard.GET("/top-products", h.TopProducts)
		dashboard.GET("/revenue", h.Revenue)
	}
}

// Summary
// @Summary      Dashboard summary
// @Description  Revenue today/week/month, pending balance, low stock count and in-flight orders
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        refresh  query     bool  false  "Bypass the cache"
// @Success      200      {object}  response.Response{data=model.DashboardSummary}
// @Router       /api/dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	refresh := optionalBoolQuery(c, "refresh")
	summary, err := h.dashboardService.Summary(c.Request.Context(), refresh != nil && *refresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// TopProducts
// @Summary      Top-selling products
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Look-back window in days (default 30)"
// @Success      200   {object}  response.Response{data=[]model.ProductRanking}
// @Router       /api/dashboard/top-products [get]
func (h *DashboardHandler) TopProducts(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	ranking, err := h.dashboardService.TopProducts(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ranking))
}

// Revenue
// @Summary      Revenue by day
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Number of days (default 30)"
// @Success      200   {object}  response.Response{data=[]model.DailyRevenue}
// @Router       /api/dashboard/revenue [get]
func (h *DashboardHandler) Revenue(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	rows, err := h.dashboardService.RevenueByPeriod(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
