package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	lifecycle *usecase.OrderLifecycle
}

func NewOrderHandler(lifecycle *usecase.OrderLifecycle) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle}
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.lifecycle.ListMyOrders(ctx, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toOrders(orders)})
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	d, err := h.lifecycle.GetOrder(ctx, p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDetail(d))
}

func (h *OrderHandler) GetStatus(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	id := c.Param("id")
	st, err := h.lifecycle.GetStatus(ctx, p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": st})
}
