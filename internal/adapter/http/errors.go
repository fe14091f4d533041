package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// writeError maps usecase errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		verr *usecase.ValidationError
		pf   *usecase.PartialFailureError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": verr.Fields})
	case errors.As(err, &pf):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "partial_failure", "order_id": pf.OrderID, "step": pf.Step})
	case errors.Is(err, middleware.ErrNoPrincipal):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, usecase.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{"error": "empty_cart", "redirect": "/cart"})
	case errors.Is(err, usecase.ErrInvalidZone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_zone"})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, usecase.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": "out_of_stock"})
	case errors.Is(err, usecase.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request"})
	case errors.Is(err, usecase.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, usecase.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition"})
	case errors.Is(err, usecase.ErrCheckoutFailed):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "checkout_failed", "retryable": true})
	case errors.Is(err, usecase.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout"})
	default:
		logging.From(c).Error("unhandled error", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
}
