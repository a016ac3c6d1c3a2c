package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/andresuchdata/stockcount/internal/api/response"
	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/export"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/andresuchdata/stockcount/internal/storage"
	apperrors "github.com/andresuchdata/stockcount/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OrderHandler struct {
	orders  *service.OrderService
	archive storage.ObjectStorage
}

// NewOrderHandler builds the handler. archive may be nil, in which case
// exports are never archived.
func NewOrderHandler(orders *service.OrderService, archive storage.ObjectStorage) *OrderHandler {
	return &OrderHandler{orders: orders, archive: archive}
}

type generateResponse struct {
	Order   *domain.PurchaseOrder `json:"order"`
	Created bool                  `json:"created"`
	Text    string                `json:"text"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GenerateOrder creates a purchase order for every low item.
func (h *OrderHandler) GenerateOrder(c *gin.Context) {
	order, err := h.orders.Generate(c.Request.Context(), actor(c).StaffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if order == nil {
		response.OK(c, generateResponse{Text: h.orders.Text(nil)})
		return
	}
	response.Status(c, http.StatusCreated, generateResponse{Order: order, Created: true, Text: h.orders.Text(order)})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"order":     order,
		"total":     order.TotalCost(),
		"suppliers": service.SupplierTotals(order),
	})
}

// GetOrderText renders the supplier-grouped plain text of an order.
func (h *OrderHandler) GetOrderText(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.String(http.StatusOK, h.orders.Text(order))
}

// ExportOrder streams the order as CSV or XLSX. With ?archive=true the
// document is also uploaded to object storage; an upload failure does not
// fail the download.
func (h *OrderHandler) ExportOrder(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, apperrors.Wrap(apperrors.CodeValidation, err, "invalid export format"))
		return
	}
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOrder(&buf, order, format); err != nil {
		response.Error(c, apperrors.Wrap(apperrors.CodeInternal, err, "export order"))
		return
	}

	filename := export.Filename(order, format)
	if h.archive != nil && c.Query("archive") == "true" {
		key := storage.OrderKey(filename)
		if err := h.archive.UploadObject(c.Request.Context(), key, buf.Bytes(), format.ContentType()); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to archive order export")
		} else {
			c.Header("X-Archive-Key", key)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// UpdateStatus moves an order forward through its lifecycle.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	change, err := h.orders.UpdateStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, change)
}
