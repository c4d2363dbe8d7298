package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"dotaciones/internal/middleware"
	"dotaciones/internal/service"
	"dotaciones/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportUpload = 10 << 20
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	reports := router.Group("/api/reports")
	{
		reports.GET("/inventory.xlsx", auth.RequirePermission("reports.read"), h.ExportInventory)
		reports.POST("/products/import", auth.RequirePermission("reports.write", "inventory.write"), h.ImportProducts)
	}
}

// ExportInventory
// @Summary      Inventory spreadsheet
// @Tags         reports
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /api/reports/inventory.xlsx [get]
func (h *ReportHandler) ExportInventory(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reportService.ExportInventory(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportProducts
// @Summary      Import products from a spreadsheet
// @Description  Columns: name, category, quantity, purchase_price, sale_price and optional brand, color, min_stock, supplier
// @Tags         reports
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "xlsx file"
// @Success      200   {object}  response.Response{data=service.ImportResult}
// @Failure      400   {object}  response.Response
// @Router       /api/reports/products/import [post]
func (h *ReportHandler) ImportProducts(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportUpload)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "An xlsx file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Cannot read uploaded file"))
		return
	}
	defer file.Close()

	res, err := h.reportService.ImportProducts(c.Request.Context(), actorFrom(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
