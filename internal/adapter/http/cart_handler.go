package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cart *usecase.CartManager
}

func NewCartHandler(cart *usecase.CartManager) *CartHandler {
	return &CartHandler{cart: cart}
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"` // defaults to 1
}

type updateQtyReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) List(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	view, err := h.cart.ListItems(ctx, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResp{Items: toCartItems(view.Items), Subtotal: view.Subtotal})
}

func (h *CartHandler) Add(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	line, err := h.cart.AddItem(ctx, p, req.ProductID, qty)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartLine(line))
}

func (h *CartHandler) Update(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req updateQtyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	line, err := h.cart.UpdateQuantity(ctx, p, c.Param("lineId"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartLine(line))
}

func (h *CartHandler) Remove(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.cart.RemoveItem(ctx, p, c.Param("lineId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
