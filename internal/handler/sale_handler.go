package handler

import (
	"net/http"

	"dotaciones/internal/middleware"
	"dotaciones/internal/repository"
	"dotaciones/internal/service"
	"dotaciones/pkg/pagination"
	"dotaciones/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	sales := router.Group("/api/sales")
	{
		sales.GET("", auth.RequirePermission("sales.read"), h.ListSales)
		sales.GET("/:id", auth.RequirePermission("sales.read"), h.GetSale)
		sales.POST("", auth.RequirePermission("sales.write"), h.CreateSale)
		sales.POST("/:id/items", auth.RequirePermission("sales.write"), h.AddItem)
	}
}

// ListSales
// @Summary      List direct sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        from            query     string  false  "Sold on or after (YYYY-MM-DD)"
// @Param        to              query     string  false  "Sold on or before (YYYY-MM-DD)"
// @Param        payment_method  query     string  false  "cash, transfer, card or credit"
// @Param        client_id       query     string  false  "Client ID"
// @Param        page            query     int     false  "Page number"
// @Param        limit           query     int     false  "Items per page"
// @Success      200             {object}  response.Response{data=[]model.Sale}
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	p := pagination.Parse(c)
	clientID, ok := optionalUUIDQuery(c, "client_id")
	if !ok {
		return
	}
	from, ok := optionalDateQuery(c, "from", false)
	if !ok {
		return
	}
	to, ok := optionalDateQuery(c, "to", true)
	if !ok {
		return
	}

	sales, total, err := h.saleService.ListSales(c.Request.Context(), repository.SaleFilter{
		From:          from,
		To:            to,
		PaymentMethod: c.Query("payment_method"),
		ClientID:      clientID,
		Page:          p.Page,
		Limit:         p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, sales, p.Page, p.Limit, total))
}

// GetSale
// @Summary      Get sale with items
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// CreateSale
// @Summary      Create direct sale
// @Description  Records a counter sale. Any line above current stock aborts the whole sale.
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=model.Sale}
// @Failure      422      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.saleService.CreateSale(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// AddItem
// @Summary      Add line item to a sale
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Sale ID"
// @Param        payload  body      service.SaleItemRequest  true  "Line item"
// @Success      201      {object}  response.Response{data=service.SaleLineResult}
// @Failure      422      {object}  response.Response
// @Router       /api/sales/{id}/items [post]
func (h *SaleHandler) AddItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.SaleItemRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.saleService.AddItem(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
