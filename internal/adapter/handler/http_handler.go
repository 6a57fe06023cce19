package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/core/service"
	"github.com/rl1809/coffee-cart/internal/port"
)

const cartCtxKey = "cart"

// NotificationSource hands over the notifications a session has not
// seen yet.
type NotificationSource interface {
	Drain(sessionID string) []domain.Notification
}

type HTTPHandler struct {
	sessions *service.Sessions
	catalog  port.CatalogRepository
	inbox    NotificationSource
	logger   *zap.Logger
}

type AddItemHTTPRequest struct {
	ProductID int `json:"product_id" binding:"required"`
	Amount    int `json:"amount" binding:"required"`
}

type UpdateItemHTTPRequest struct {
	Amount *int `json:"amount" binding:"required"`
}

type PaymentHTTPRequest struct {
	Method domain.PaymentMethod `json:"method"`
}

type CartHTTPResponse struct {
	SessionID     string                `json:"session_id"`
	Cart          domain.Cart           `json:"cart"`
	ItemCount     int                   `json:"item_count"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

type ErrorHTTPResponse struct {
	Success       bool                  `json:"success"`
	Message       string                `json:"message"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

// NewHTTPHandler builds the REST handler. inbox may be nil, in which case
// responses carry no notifications.
func NewHTTPHandler(sessions *service.Sessions, catalog port.CatalogRepository, inbox NotificationSource, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{sessions: sessions, catalog: catalog, inbox: inbox, logger: logger}
}

// Router wires every route onto a fresh gin engine.
func (h *HTTPHandler) Router() *gin.Engine {
	router := gin.New()
	router.Use(h.requestLogger(), gin.Recovery())

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	api.GET("/products", h.ListProducts)
	api.POST("/sessions", h.CreateSession)

	carts := api.Group("/carts/:session", h.loadCart)
	carts.GET("", h.GetCart)
	carts.DELETE("", h.ResetCart)
	carts.POST("/items", h.AddItem)
	carts.PUT("/items/:productID", h.UpdateItem)
	carts.DELETE("/items/:productID", h.RemoveItem)
	carts.PUT("/payment", h.SelectPayment)
	carts.PUT("/address", h.AddAddress)

	return router
}

func (h *HTTPHandler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"coffees": products})
}

func (h *HTTPHandler) CreateSession(c *gin.Context) {
	id, store, err := h.sessions.New(c.Request.Context())
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusCreated, h.cartResponse(id, store))
}

func (h *HTTPHandler) loadCart(c *gin.Context) {
	store, err := h.sessions.Open(c.Request.Context(), c.Param("session"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid session id")
		c.Abort()
		return
	}
	c.Set(cartCtxKey, store)
	c.Next()
}

func cartFrom(c *gin.Context) *service.CartStore {
	return c.MustGet(cartCtxKey).(*service.CartStore)
}

func (h *HTTPHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), cartFrom(c)))
}

func (h *HTTPHandler) AddItem(c *gin.Context) {
	var req AddItemHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	store := cartFrom(c)
	if err := store.AddProduct(c.Request.Context(), req.ProductID, req.Amount); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), store))
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	var req UpdateItemHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	store := cartFrom(c)
	if err := store.UpdateProduct(c.Request.Context(), productID, *req.Amount); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), store))
}

func (h *HTTPHandler) RemoveItem(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	store := cartFrom(c)
	if err := store.RemoveProduct(c.Request.Context(), productID); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), store))
}

func (h *HTTPHandler) SelectPayment(c *gin.Context) {
	var req PaymentHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	store := cartFrom(c)
	if err := store.SelectPayment(c.Request.Context(), req.Method); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), store))
}

func (h *HTTPHandler) AddAddress(c *gin.Context) {
	var addr domain.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	store := cartFrom(c)
	if err := store.AddAddress(c.Request.Context(), addr); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), store))
}

func (h *HTTPHandler) ResetCart(c *gin.Context) {
	store := cartFrom(c)
	if err := store.ResetCart(c.Request.Context()); err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session"), store))
}

func productIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("productID"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeCartError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		status, message = http.StatusNotFound, "product not found"
	case errors.Is(err, service.ErrUpdateFailed):
		status, message = http.StatusNotFound, "failed to update the product quantity"
	case errors.Is(err, service.ErrRemoveFailed):
		status, message = http.StatusNotFound, "failed to remove the product"
	case errors.Is(err, service.ErrInvalidAmount):
		status, message = http.StatusBadRequest, "invalid amount"
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		status, message = http.StatusBadRequest, "invalid payment method"
	default:
		h.logger.Error("cart operation failed", zap.Error(err))
	}

	c.JSON(status, ErrorHTTPResponse{
		Success:       false,
		Message:       message,
		Notifications: h.drain(c.Param("session")),
	})
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorHTTPResponse{Success: false, Message: message})
}

func (h *HTTPHandler) drain(sessionID string) []domain.Notification {
	if h.inbox == nil {
		return nil
	}
	return h.inbox.Drain(sessionID)
}

func (h *HTTPHandler) cartResponse(sessionID string, store *service.CartStore) CartHTTPResponse {
	snap := store.Snapshot()
	return CartHTTPResponse{
		SessionID:     sessionID,
		Cart:          snap,
		ItemCount:     snap.ItemCount(),
		Notifications: h.drain(sessionID),
	}
}
