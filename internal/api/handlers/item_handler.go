package handlers

import (
	"net/http"

	"github.com/andresuchdata/stockcount/internal/api/response"
	"github.com/andresuchdata/stockcount/internal/service"
	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	items *service.ItemService
}

func NewItemHandler(items *service.ItemService) *ItemHandler {
	return &ItemHandler{items: items}
}

// ListItems returns the catalog, grouped by category when ?grouped=true.
func (h *ItemHandler) ListItems(c *gin.Context) {
	if c.Query("grouped") == "true" {
		grouped, err := h.items.ListByCategory(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, grouped)
		return
	}
	items, err := h.items.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	var in service.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.items.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Status(c, http.StatusCreated, item)
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var in service.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, bindError(err))
		return
	}
	item, err := h.items.Update(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id := c.Param("id")
	if err := h.items.Delete(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": id})
}

func (h *ItemHandler) GetLowStock(c *gin.Context) {
	lines, err := h.items.LowStock(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lines)
}

func (h *ItemHandler) GetHighStock(c *gin.Context) {
	lines, err := h.items.HighStock(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lines)
}
