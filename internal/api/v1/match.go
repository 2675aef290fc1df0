package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartdoc/internal/matcher"
	"smartdoc/internal/model"
)

// MatchRequest 主数据匹配请求
type MatchRequest struct {
	EntityType  string   `json:"entityType" binding:"required"`
	MatchFields []string `json:"matchFields"`
	Values      []string `json:"values" binding:"required"`
}

// MatchResponse 主数据匹配响应
type MatchResponse struct {
	Candidates []model.MatchCandidate `json:"candidates"`
	Statistics model.MatchStatistics  `json:"statistics"`
}

// Match 对一组源值做主数据匹配
// POST /api/v1/documents/match
func (h *Handler) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	if len(req.MatchFields) == 0 {
		req.MatchFields = []string{"name", "alias"}
	}

	matchCfg := model.MatchConfig{
		EntityType:  req.EntityType,
		MatchFields: req.MatchFields,
	}
	if err := matcher.ValidateConfig(matchCfg); err != nil {
		var cfgErr *model.InvalidMatchConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	catalog, err := h.store.CatalogSnapshot(req.EntityType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	candidates, stats, err := h.matcher.MatchBatch(req.Values, matchCfg, catalog)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Candidates: candidates,
		Statistics: stats,
	})
}
