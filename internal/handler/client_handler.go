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

type ClientHandler struct {
	clientService service.ClientService
}

func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	clients := router.Group("/api/clients")
	{
		clients.GET("", auth.RequirePermission("clients.read"), h.ListClients)
		clients.GET("/active", auth.RequirePermission("clients.read"), h.ListActive)
		clients.GET("/statistics", auth.RequirePermission("clients.read"), h.GetStatistics)
		clients.GET("/:id", auth.RequirePermission("clients.read"), h.GetClient)
		clients.GET("/:id/history", auth.RequirePermission("clients.read", "orders.read"), h.GetHistory)
		clients.POST("", auth.RequirePermission("clients.write"), h.CreateClient)
		clients.PATCH("/:id", auth.RequirePermission("clients.write"), h.UpdateClient)
		clients.DELETE("/:id", auth.RequirePermission("clients.write"), h.DeactivateClient)
	}
}

// ListClients returns a page of clients
// @Summary      List clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        active    query     bool    false  "Filter by active flag"
// @Param        category  query     string  false  "individual, business or wholesale"
// @Param        search    query     string  false  "Search name, phone or email"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20, max 100, or all)"
// @Success      200       {object}  response.Response{data=[]model.Client}
// @Router       /api/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.ClientFilter{
		Active:   optionalBoolQuery(c, "active"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     p.Page,
		Limit:    p.Limit,
	}

	clients, total, err := h.clientService.ListClients(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, clients, p.Page, p.Limit, total))
}

// ListActive returns every active client in compact form
// @Summary      Active clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ClientSummary}
// @Router       /api/clients/active [get]
func (h *ClientHandler) ListActive(c *gin.Context) {
	summaries, err := h.clientService.ListActiveSummaries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summaries))
}

// GetStatistics
// @Summary      Client statistics
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.ClientStatistics}
// @Router       /api/clients/statistics [get]
func (h *ClientHandler) GetStatistics(c *gin.Context) {
	stats, err := h.clientService.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetClient
// @Summary      Get client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=model.Client}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// GetHistory returns the client's orders and totals
// @Summary      Client order history
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=service.ClientHistory}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id}/history [get]
func (h *ClientHandler) GetHistory(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	history, err := h.clientService.GetHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// CreateClient registers a new client
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateClientRequest  true  "Client"
// @Success      201      {object}  response.Response{data=model.Client}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.clientService.CreateClient(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}

// UpdateClient applies a partial update
// @Summary      Update client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Client ID"
// @Param        payload  body      service.UpdateClientRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Client}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/clients/{id} [patch]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateClientRequest
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.clientService.UpdateClient(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// DeactivateClient marks the client inactive; history is kept
// @Summary      Deactivate client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id} [delete]
func (h *ClientHandler) DeactivateClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.clientService.DeactivateClient(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Client deactivated"))
}
