package v1

import (
	"github.com/gin-gonic/gin"

	"smartdoc/internal/config"
	"smartdoc/internal/matcher"
	"smartdoc/internal/parser"
	"smartdoc/internal/pipeline"
	"smartdoc/internal/quality"
	"smartdoc/internal/store"
	"smartdoc/internal/transform"
)

// Handler V1 API 处理器
type Handler struct {
	store       *store.Store
	coordinator *pipeline.Coordinator
	detector    *parser.FormatDetector
	transformer *transform.Transformer
	validator   *quality.Validator
	matcher     *matcher.Matcher
}

// NewHandler 创建 V1 API 处理器
func NewHandler(cfg *config.AppConfig, st *store.Store, coordinator *pipeline.Coordinator) *Handler {
	detectorCfg := parser.DetectorConfig{
		ConfidenceFloor:   cfg.Detector.ConfidenceFloor,
		TieBreakEpsilon:   cfg.Detector.TieBreakEpsilon,
		SummaryRowLimit:   cfg.Detector.SummaryRowLimit,
		CompletenessRatio: cfg.Detector.CompletenessRatio,
	}

	validatorCfg := quality.DefaultValidatorConfig()
	validatorCfg.Weights = quality.Weights{
		Completeness: cfg.Quality.CompletenessWeight,
		Accuracy:     cfg.Quality.AccuracyWeight,
		Consistency:  cfg.Quality.ConsistencyWeight,
	}

	matcherCfg := matcher.MatcherConfig{
		FuzzyThreshold:  cfg.Matcher.FuzzyThreshold,
		AliasConfidence: cfg.Matcher.AliasConfidence,
	}

	return &Handler{
		store:       st,
		coordinator: coordinator,
		detector:    parser.NewFormatDetector(detectorCfg),
		transformer: transform.NewTransformer(),
		validator:   quality.NewValidator(validatorCfg),
		matcher:     matcher.NewMatcher(matcherCfg),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 单据摄取与独立校验
	router.POST("/documents/ingest", h.Ingest)
	router.POST("/documents/validate", h.Validate)
	router.POST("/documents/match", h.Match)

	// 上传记录查询
	router.GET("/uploads/:id", h.GetUpload)
	router.GET("/uploads/:id/report", h.GetUploadReport)
	router.GET("/uploads/:id/matches", h.GetUploadMatches)

	// 主数据目录维护
	router.PUT("/catalog/entities", h.UpsertCatalogEntity)
	router.GET("/catalog/entities", h.ListCatalogEntities)
}
