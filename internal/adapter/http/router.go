package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Admin    *AdminHandler
	Catalog  *CatalogHandler
	Hub      *Hub
}

func corsConfig(allowOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Idempotency-Key", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = allowOrigins
	return cfg
}

func NewRouter(h Handlers, authz *middleware.Authz, base *slog.Logger, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware(), cors.New(corsConfig(allowOrigins)))
	r.Use(middleware.Logging(base))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/products", h.Catalog.ListProducts)
		v1.GET("/products/:id", h.Catalog.GetProduct)
		v1.GET("/categories", h.Catalog.ListCategories)
		v1.GET("/checkout/zones", h.Checkout.Zones)
	}

	authed := v1.Group("", authz.Authenticate())
	{
		authed.GET("/cart", h.Cart.List)
		authed.POST("/cart", h.Cart.Add)
		authed.PATCH("/cart/:lineId", h.Cart.Update)
		authed.DELETE("/cart/:lineId", h.Cart.Remove)

		authed.POST("/checkout/quote", h.Checkout.Quote)
		authed.POST("/checkout", h.Checkout.PlaceOrder)

		authed.GET("/orders", h.Orders.ListMine)
		authed.GET("/orders/:id", h.Orders.GetOrderByID)
		authed.GET("/orders/:id/status", h.Orders.GetStatus)

		authed.GET("/ws", h.Hub.ServeWS)
	}

	admin := authed.Group("/admin", authz.RequireAdmin())
	{
		admin.GET("/orders", h.Admin.ListOrders)
		admin.GET("/orders/export", h.Admin.Export)
		admin.GET("/stats", h.Admin.Stats)
		admin.PUT("/orders/:id/status", h.Admin.SetStatus)
	}

	return r
}
