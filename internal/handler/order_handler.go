package handler

import (
	"net/http"
	"strings"

	"dotaciones/internal/middleware"
	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	"dotaciones/internal/service"
	"dotaciones/pkg/pagination"
	"dotaciones/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxDesignUpload = 20 << 20

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	orders := router.Group("/api/orders")
	{
		orders.GET("", auth.RequirePermission("orders.read"), h.ListOrders)
		orders.GET("/dashboard", auth.RequirePermission("orders.read"), h.Dashboard)
		orders.GET("/status-policy", auth.RequirePermission("orders.read"), h.StatusPolicy)
		orders.GET("/:id", auth.RequirePermission("orders.read"), h.GetOrder)
		orders.POST("", auth.RequirePermission("orders.write"), h.PlaceOrder)
		orders.PATCH("/:id", auth.RequirePermission("orders.write"), h.UpdateOrder)
		orders.POST("/:id/status", auth.RequirePermission("orders.write"), h.ChangeStatus)
		orders.POST("/deliver", auth.RequirePermission("orders.write"), h.BulkMarkDelivered)
		orders.POST("/:id/design", auth.RequirePermission("orders.write"), h.UploadDesign)
	}
}

// ListOrders
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        status           query     string  false  "Comma separated statuses"
// @Param        client_id        query     string  false  "Client ID"
// @Param        from             query     string  false  "Ordered on or after (YYYY-MM-DD)"
// @Param        to               query     string  false  "Ordered on or before (YYYY-MM-DD)"
// @Param        pending_payment  query     bool    false  "Only orders with a pending balance"
// @Param        page             query     int     false  "Page number"
// @Param        limit            query     int     false  "Items per page"
// @Success      200              {object}  response.Response{data=[]service.OrderResponse}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
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

	var statuses []string
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	pending := optionalBoolQuery(c, "pending_payment")

	filter := repository.OrderFilter{
		Statuses:       statuses,
		ClientID:       clientID,
		From:           from,
		To:             to,
		PendingPayment: pending != nil && *pending,
		Page:           p.Page,
		Limit:          p.Limit,
	}
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, p.Page, p.Limit, total))
}

// Dashboard
// @Summary      Orders dashboard
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.OrdersDashboard}
// @Router       /api/orders/dashboard [get]
func (h *OrderHandler) Dashboard(c *gin.Context) {
	dash, err := h.orderService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dash))
}

// StatusPolicy returns the allowed next statuses for every status
// @Summary      Order status transitions
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=map[string][]string}
// @Router       /api/orders/status-policy [get]
func (h *OrderHandler) StatusPolicy(c *gin.Context) {
	policy := h.orderService.Policy()
	table := make(map[string][]string)
	for _, status := range model.OrderStatuses {
		table[status] = policy.Allowed(status)
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, table))
}

// GetOrder
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// PlaceOrder
// @Summary      Place order
// @Description  Creates an embroidery order. Material lines consume stock and an advance is booked as a payment.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOrderRequest  true  "Order"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.PlaceOrder(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// UpdateOrder
// @Summary      Update order details
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Order ID"
// @Param        payload  body      service.UpdateOrderRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id} [patch]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.UpdateOrder(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ChangeStatus
// @Summary      Change order status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Order ID"
// @Param        payload  body      service.ChangeStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/orders/{id}/status [post]
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.ChangeStatus(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// BulkMarkDelivered
// @Summary      Deliver finished orders
// @Description  Moves the finished orders among the given ids to delivered
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkDeliverRequest  true  "Order ids"
// @Success      200      {object}  response.Response{data=map[string]int}
// @Router       /api/orders/deliver [post]
func (h *OrderHandler) BulkMarkDelivered(c *gin.Context) {
	var req service.BulkDeliverRequest
	if !bindJSON(c, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, raw := range req.OrderIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id "+raw))
			return
		}
		ids = append(ids, id)
	}
	count, err := h.orderService.BulkMarkDelivered(c.Request.Context(), actorFrom(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"delivered": count}))
}

// UploadDesign stores the design file for an order
// @Summary      Upload design file
// @Tags         orders
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Order ID"
// @Param        file  formData  file    true  "Design file (png, jpg, pdf, svg, dst, pes, jef, exp, emb)"
// @Success      200   {object}  response.Response{data=map[string]string}
// @Router       /api/orders/{id}/design [post]
func (h *OrderHandler) UploadDesign(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDesignUpload)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "A design file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Cannot read uploaded file"))
		return
	}
	defer file.Close()

	path, err := h.orderService.UploadDesign(c.Request.Context(), actorFrom(c), id, header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"design_file": path}))
}
