package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"yescity/internal/model"
	"yescity/internal/service"
)

// CatalogBrowser is the read-only catalog surface
type CatalogBrowser interface {
	List(ctx context.Context, category model.Category, req model.CatalogListRequest) (*model.CatalogPage, error)
	Get(ctx context.Context, category model.Category, idOrName string) (model.CatalogRecord, error)
	Cities(ctx context.Context) ([]string, error)
	Subcategories(ctx context.Context, category model.Category) ([]string, error)
}

// CatalogHandler handles catalog browsing HTTP requests
type CatalogHandler struct {
	catalog CatalogBrowser
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog CatalogBrowser) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
	}
}

type categoryDescription struct {
	Name         string `json:"name"`
	Collection   string `json:"collection"`
	NameField    string `json:"nameField"`
	RequiresCity bool   `json:"requiresCity"`
	Description  string `json:"description"`
}

// List handles GET /api/v1/catalog/:category
func (h *CatalogHandler) List(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	var req model.CatalogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	page, err := h.catalog.List(c.Request.Context(), category, req)
	if err != nil {
		c.JSON(service.HTTPStatus(err), gin.H{"error": "Failed to list records: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/v1/catalog/:category/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	record, err := h.catalog.Get(c.Request.Context(), category, c.Param("id"))
	if err != nil {
		c.JSON(service.HTTPStatus(err), gin.H{"error": "Failed to get record: " + err.Error()})
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Cities handles GET /api/v1/cities
func (h *CatalogHandler) Cities(c *gin.Context) {
	cities, err := h.catalog.Cities(c.Request.Context())
	if err != nil {
		c.JSON(service.HTTPStatus(err), gin.H{"error": "Failed to list cities: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": cities, "count": len(cities)})
}

// Categories handles GET /api/v1/categories. With ?category= it lists the
// distinct sub-categories stored in that collection instead.
func (h *CatalogHandler) Categories(c *gin.Context) {
	if name := strings.TrimSpace(c.Query("category")); name != "" {
		category, ok := model.LookupCategory(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category: " + name})
			return
		}
		values, err := h.catalog.Subcategories(c.Request.Context(), category)
		if err != nil {
			c.JSON(service.HTTPStatus(err), gin.H{"error": "Failed to list categories: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "categories": values, "count": len(values)})
		return
	}

	out := make([]categoryDescription, 0, len(model.AllCategories))
	for _, cat := range model.AllCategories {
		info := cat.Info()
		out = append(out, categoryDescription{
			Name:         string(cat),
			Collection:   info.Collection,
			NameField:    info.NameField,
			RequiresCity: info.RequiresCity,
			Description:  info.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out, "count": len(out)})
}

// categoryParam resolves the :category path segment, writing a 400 when unknown
func categoryParam(c *gin.Context) (model.Category, bool) {
	category, ok := model.LookupCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid category. Must be one of: " + strings.Join(model.CategoryNames(), ", "),
		})
		return "", false
	}
	return category, true
}
