package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartdoc/internal/model"
)

// CatalogEntityRequest 主数据条目写入请求
type CatalogEntityRequest struct {
	ID         string   `json:"id"`
	EntityType string   `json:"entityType" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	Aliases    []string `json:"aliases"`
}

// UpsertCatalogEntity 写入或更新主数据条目
// PUT /api/v1/catalog/entities
func (h *Handler) UpsertCatalogEntity(c *gin.Context) {
	var req CatalogEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	entity := model.CatalogEntity{
		ID:         req.ID,
		EntityType: req.EntityType,
		Name:       req.Name,
		Aliases:    req.Aliases,
		UpdatedAt:  time.Now(),
	}
	if err := h.store.UpsertCatalogEntity(entity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entity)
}

// ListCatalogEntities 按实体类型列出主数据条目
// GET /api/v1/catalog/entities?entityType=customer
func (h *Handler) ListCatalogEntities(c *gin.Context) {
	entityType := c.Query("entityType")
	if entityType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 entityType 参数"})
		return
	}

	entities, err := h.store.CatalogSnapshot(entityType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entities": entities})
}
