package api

import (
	"net/http"

	"pos-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AddItemRequest represents a request to add a catalog entry
type AddItemRequest struct {
	ID       string           `json:"id" binding:"required"`
	Name     string           `json:"name" binding:"required"`
	Price    *decimal.Decimal `json:"price" binding:"required"`
	Quantity *int             `json:"quantity" binding:"required"`
}

// UpdateItemRequest carries optional fields; only quantity is mutable
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// AddCustomerRequest represents a request to register a customer
type AddCustomerRequest struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *Handler) listItems(c *gin.Context) {
	items := make([]models.Item, 0)
	for item := range h.ledger.ListItems() {
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) addItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.ledger.AddItem(c.Request.Context(), req.ID, req.Name, *req.Price, *req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) getItem(c *gin.Context) {
	item, err := h.ledger.GetItem(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) updateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	id := c.Param("id")
	if err := h.ledger.AdjustQuantity(c.Request.Context(), id, *req.Quantity); err != nil {
		writeError(c, err)
		return
	}

	item, err := h.ledger.GetItem(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers := make([]models.Customer, 0)
	for customer := range h.ledger.ListCustomers() {
		customers = append(customers, customer)
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *Handler) addCustomer(c *gin.Context) {
	var req AddCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customer, err := h.ledger.AddCustomer(c.Request.Context(), req.ID, req.Name, req.Email, req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) getCustomer(c *gin.Context) {
	customer, err := h.ledger.GetCustomer(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}
