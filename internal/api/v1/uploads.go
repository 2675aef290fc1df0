package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetUpload 查询上传记录
// GET /api/v1/uploads/:id
func (h *Handler) GetUpload(c *gin.Context) {
	id := c.Param("id")

	log, err := h.store.GetUploadLog(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "上传记录不存在"})
		return
	}

	c.JSON(http.StatusOK, log)
}

// GetUploadReport 查询上传对应的最新质量报告
// GET /api/v1/uploads/:id/report
func (h *Handler) GetUploadReport(c *gin.Context) {
	id := c.Param("id")

	report, err := h.store.GetQualityReport(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "质量报告不存在"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetUploadMatches 查询上传对应的匹配历史
// GET /api/v1/uploads/:id/matches
func (h *Handler) GetUploadMatches(c *gin.Context) {
	id := c.Param("id")

	history, err := h.store.GetMatchHistory(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": history})
}
