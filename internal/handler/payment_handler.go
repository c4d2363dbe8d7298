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

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	payments := router.Group("/api/payments")
	{
		payments.GET("", auth.RequirePermission("payments.read"), h.ListPayments)
		payments.POST("", auth.RequirePermission("payments.write"), h.RecordPayment)
	}
}

// ListPayments
// @Summary      List payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        order_id  query     string  false  "Order ID"
// @Param        from      query     string  false  "Paid on or after (YYYY-MM-DD)"
// @Param        to        query     string  false  "Paid on or before (YYYY-MM-DD)"
// @Param        page      query     int     false  "Page number"
// @Param        limit     query     int     false  "Items per page"
// @Success      200       {object}  response.Response{data=[]model.Payment}
// @Router       /api/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	p := pagination.Parse(c)
	orderID, ok := optionalUUIDQuery(c, "order_id")
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

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), repository.PaymentFilter{
		OrderID: orderID,
		From:    from,
		To:      to,
		Page:    p.Page,
		Limit:   p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, payments, p.Page, p.Limit, total))
}

// RecordPayment
// @Summary      Record payment
// @Description  Adds a payment to an order. Payments above the pending balance are rejected.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=service.PaymentResult}
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.paymentService.RecordPayment(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
