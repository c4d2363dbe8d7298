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

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	inventory := router.Group("/api")
	{
		inventory.GET("/categories", auth.RequirePermission("inventory.read"), h.ListCategories)
		inventory.POST("/categories", auth.RequirePermission("inventory.write"), h.CreateCategory)
		inventory.PUT("/categories/:id", auth.RequirePermission("inventory.write"), h.UpdateCategory)

		inventory.GET("/products", auth.RequirePermission("inventory.read"), h.GetProducts)
		inventory.GET("/products/alerts", auth.RequirePermission("inventory.read"), h.StockAlerts)
		inventory.GET("/products/:id", auth.RequirePermission("inventory.read"), h.GetProduct)
		inventory.POST("/products", auth.RequirePermission("inventory.write"), h.CreateProduct)
		inventory.PATCH("/products/:id", auth.RequirePermission("inventory.write"), h.UpdateProduct)

		inventory.POST("/products/:id/adjust", auth.RequirePermission("inventory.write"), h.AdjustStock)
		inventory.POST("/products/:id/purchase", auth.RequirePermission("inventory.write"), h.PurchaseEntry)
		inventory.POST("/products/:id/return", auth.RequirePermission("inventory.write"), h.ReturnStock)

		inventory.GET("/movements", auth.RequirePermission("inventory.read"), h.ListMovements)
	}
}

// ListCategories
// @Summary      List categories
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Category}
// @Router       /api/categories [get]
func (h *InventoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.inventoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory
// @Summary      Create category
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCategoryRequest  true  "Category"
// @Success      201      {object}  response.Response{data=model.Category}
// @Failure      409      {object}  response.Response
// @Router       /api/categories [post]
func (h *InventoryHandler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.inventoryService.CreateCategory(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory
// @Summary      Update category
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Category ID"
// @Param        payload  body      service.CreateCategoryRequest  true  "Category"
// @Success      200      {object}  response.Response{data=model.Category}
// @Router       /api/categories/{id} [put]
func (h *InventoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.inventoryService.UpdateCategory(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// GetProducts handles retrieving paginated inventory statuses
// @Summary      Get products
// @Description  Retrieves a paginated list of products with current stock and derived margins
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        category_id  query     string  false  "Category ID"
// @Param        low_stock    query     bool    false  "Only products at or below min stock"
// @Param        search       query     string  false  "Search by name, brand or color"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/products [get]
func (h *InventoryHandler) GetProducts(c *gin.Context) {
	p := pagination.Parse(c)
	categoryID, ok := optionalUUIDQuery(c, "category_id")
	if !ok {
		return
	}
	lowStock := optionalBoolQuery(c, "low_stock")

	filter := repository.ProductFilter{
		CategoryID: categoryID,
		LowStock:   lowStock != nil && *lowStock,
		Search:     c.Query("search"),
		Page:       p.Page,
		Limit:      p.Limit,
	}
	products, total, err := h.inventoryService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, p.Page, p.Limit, total))
}

// StockAlerts lists products that need restocking, lowest stock first
// @Summary      Stock alerts
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/products/alerts [get]
func (h *InventoryHandler) StockAlerts(c *gin.Context) {
	products, err := h.inventoryService.StockAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// GetProduct
// @Summary      Get product
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.inventoryService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct creates a new inventory product entry
// @Summary      Create product
// @Description  Creates a product; the initial quantity is booked as an inbound movement
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.inventoryService.CreateProduct(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct updates an existing product's metadata
// @Summary      Update product
// @Description  Updates descriptive fields and prices. Stock is changed through the stock endpoints.
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [patch]
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.inventoryService.UpdateProduct(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// AdjustStock sets the counted quantity
// @Summary      Adjust stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Product ID"
// @Param        payload  body      service.AdjustStockRequest  true  "New quantity and reason"
// @Success      200      {object}  response.Response{data=service.StockChangeResponse}
// @Router       /api/products/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.inventoryService.AdjustStock(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// PurchaseEntry adds purchased stock
// @Summary      Purchase entry
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.PurchaseEntryRequest  true  "Quantity received"
// @Success      200      {object}  response.Response{data=service.StockChangeResponse}
// @Router       /api/products/{id}/purchase [post]
func (h *InventoryHandler) PurchaseEntry(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.PurchaseEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.inventoryService.PurchaseEntry(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ReturnStock books goods returned by a client
// @Summary      Return stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Product ID"
// @Param        payload  body      service.ReturnStockRequest  true  "Quantity returned"
// @Success      200      {object}  response.Response{data=service.StockChangeResponse}
// @Router       /api/products/{id}/return [post]
func (h *InventoryHandler) ReturnStock(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.ReturnStockRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.inventoryService.ReturnStock(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListMovements returns the stock ledger, newest first
// @Summary      Inventory movements
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  false  "Product ID"
// @Param        type        query     string  false  "in, out_sale, out_order, adjustment or return"
// @Param        from        query     string  false  "YYYY-MM-DD"
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Items per page"
// @Success      200         {object}  response.Response{data=[]model.InventoryMovement}
// @Router       /api/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)
	productID, ok := optionalUUIDQuery(c, "product_id")
	if !ok {
		return
	}
	from, ok := optionalDateQuery(c, "from", false)
	if !ok {
		return
	}

	filter := repository.MovementFilter{
		ProductID: productID,
		Type:      c.Query("type"),
		From:      from,
		Page:      p.Page,
		Limit:     p.Limit,
	}
	movements, total, err := h.inventoryService.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, movements, p.Page, p.Limit, total))
}
