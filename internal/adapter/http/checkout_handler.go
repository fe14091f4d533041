package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/pricing"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkout *usecase.Checkout
}

func NewCheckoutHandler(checkout *usecase.Checkout) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type quoteReq struct {
	DeliveryZone string `json:"delivery_zone"`
}

type quoteResp struct {
	Items []cartItemResp `json:"items"`
	Zone  pricing.Zone   `json:"zone"`
	pricing.Snapshot
}

type placeOrderReq struct {
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	DeliveryZone    string `json:"delivery_zone"`
}

func (h *CheckoutHandler) Zones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"zones": h.checkout.DeliveryZones()})
}

func (h *CheckoutHandler) Quote(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	q, err := h.checkout.Quote(ctx, p, req.DeliveryZone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResp{Items: toCartItems(q.Items), Zone: q.Zone, Snapshot: q.Snapshot})
}

// PlaceOrder converts the caller's cart into a cash-on-delivery order.
// X-Idempotency-Key makes retries of the same submission return the same order.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	o, err := h.checkout.PlaceOrder(ctx, p, usecase.CheckoutInput{
		Shipping: domain.Shipping{
			Name:    req.CustomerName,
			Phone:   req.CustomerPhone,
			Address: req.CustomerAddress,
		},
		Zone:           req.DeliveryZone,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrder(*o))
}
