package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartdoc/internal/model"
	"smartdoc/internal/parser"
)

// ValidateResponse 独立校验响应
type ValidateResponse struct {
	Detection model.FormatDetection    `json:"detection"`
	Records   []*model.CanonicalRecord `json:"records"`
	Report    *model.QualityReport     `json:"report"`
}

// Validate 对上传文件做一次性识别、转换与质量评估，不落库
// POST /api/v1/documents/validate
func (h *Handler) Validate(c *gin.Context) {
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的文件格式"})
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

	records, err := parser.ParseRows(data, fileFormat)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	detection, err := h.detector.Detect(records)
	if err != nil {
		var emptyErr *model.DataEmptyError
		var unsupportedErr *model.UnsupportedFormatError
		if errors.As(err, &emptyErr) || errors.As(err, &unsupportedErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	canonical, err := h.transformer.Transform(records, detection)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	report, err := h.validator.Validate(canonical)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		Detection: detection,
		Records:   canonical,
		Report:    report,
	})
}
