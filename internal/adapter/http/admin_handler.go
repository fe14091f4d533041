package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	admin *usecase.AdminOrders
	now   func() time.Time
}

func NewAdminHandler(admin *usecase.AdminOrders) *AdminHandler {
	return &AdminHandler{admin: admin, now: time.Now}
}

type setStatusReq struct {
	Status string `json:"status"`
}

func adminFilter(c *gin.Context) (usecase.AdminOrderFilter, error) {
	f := usecase.AdminOrderFilter{
		Search: c.Query("q"),
		Status: domain.Status(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, usecase.NewValidationError("limit", "must be a number")
		}
		f.Limit = n
	}
	return f, nil
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	f, err := adminFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.admin.List(ctx, p, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toAdminOrders(orders)})
}

func (h *AdminHandler) Export(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	f, err := adminFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := h.admin.Export(ctx, p, f, &buf); err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("orders-%s.xlsx", h.now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *AdminHandler) Stats(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	st, err := h.admin.Stats(ctx, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) SetStatus(c *gin.Context) {
	p, err := middleware.PrincipalFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	o, err := h.admin.SetStatus(ctx, p, c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}
