package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves read-only catalog browsing; it needs no principal.
type CatalogHandler struct {
	catalog usecase.CatalogReader
}

func NewCatalogHandler(catalog usecase.CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	f := domain.ProductFilter{CategoryID: c.Query("category_id")}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, f)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cats, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]categoryResp, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryResp{ID: cat.ID, Name: cat.Name})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}
