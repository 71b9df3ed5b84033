package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shop-api/internal/domain"
	"shop-api/internal/service"
)

type OrderHandler struct {
	orders   service.OrderService
	tracking service.TrackingService
}

func NewOrderHandler(orders service.OrderService, tracking service.TrackingService) *OrderHandler {
	return &OrderHandler{orders: orders, tracking: tracking}
}

type createOrderRequest struct {
	OrderDetails []service.OrderLineInput `json:"orderDetails"`
}

// CreateOrder places an order for the authenticated customer.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := callerClaims(c)
	order, err := h.orders.PlaceOrder(c.Request.Context(), claims.UserID, req.OrderDetails)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ListOrders returns the caller's own orders, newest first.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	claims := callerClaims(c)
	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	claims := callerClaims(c)
	order, err := h.orders.GetOrder(c.Request.Context(), claims.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetTracking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	claims := callerClaims(c)
	history, err := h.tracking.History(c.Request.Context(), id, claims.UserID, claims.Role == domain.RoleAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// UpdateStatus is the admin fulfillment transition.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	var req service.AdvanceStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := callerClaims(c)
	order, err := h.tracking.AdvanceStatus(c.Request.Context(), id, req, claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
