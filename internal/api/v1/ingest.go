package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartdoc/internal/pipeline"
)

// 支持的上传格式
var supportedFormats = map[string]bool{
	"csv":  true,
	"json": true,
	"xlsx": true,
	"xml":  true,
}

// fileFormatOf 由显式参数或扩展名推断文件格式
func fileFormatOf(c *gin.Context, filename string) string {
	if f := c.PostForm("fileFormat"); f != "" {
		return strings.ToLower(f)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "xls" {
		return "xlsx"
	}
	return ext
}

// Ingest 摄取单据文件 (SSE 流式响应)
// POST /api/v1/documents/ingest
func (h *Handler) Ingest(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的表单数据"})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	uploadedFile := files[0]

	fileFormat := fileFormatOf(c, uploadedFile.Filename)
	if !supportedFormats[fileFormat] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不支持的文件格式: %s", fileFormat)})
		return
	}

	src, err := uploadedFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取文件失败"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取文件失败"})
		return
	}

	opts := pipeline.IngestOptions{
		UploadID:              uuid.NewString(),
		Filename:              uploadedFile.Filename,
		FileFormat:            fileFormat,
		Data:                  data,
		SourceSystem:          c.PostForm("sourceSystem"),
		DocumentType:          c.PostForm("documentType"),
		PendingUploadID:       c.PostForm("pendingUploadId"),
		MatchEntityType:       c.PostForm("matchEntityType"),
		NeedsComplexMapping:   c.PostForm("needsComplexMapping") == "true",
		NeedsDeepQualityCheck: c.PostForm("needsDeepQualityCheck") == "true",
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	progressChan := h.coordinator.Ingest(c.Request.Context(), opts)

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
