package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"smartdoc/internal/config"
	"smartdoc/internal/matcher"
	"smartdoc/internal/model"
	"smartdoc/internal/parser"
	"smartdoc/internal/quality"
	"smartdoc/internal/routing"
	"smartdoc/internal/store"
	"smartdoc/internal/transform"
)

// Coordinator 摄取流水线协调器
type Coordinator struct {
	store       *store.Store
	files       *store.FileStore
	detector    *parser.FormatDetector
	transformer *transform.Transformer
	supplement  *transform.SupplementManager
	validator   *quality.Validator
	matcher     *matcher.Matcher
	router      *routing.Engine
	rules       []transform.SupplementRule
	fastTimeout time.Duration

	// 重通道并发受限，满载时排队
	heavy *errgroup.Group
}

// NewCoordinator 创建流水线协调器
func NewCoordinator(cfg *config.AppConfig, st *store.Store, files *store.FileStore) (*Coordinator, error) {
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

	thresholds := routing.Thresholds{
		MaxFileSizeBytes: cfg.Routing.FastMaxFileSize,
		MaxRowCount:      cfg.Routing.FastMaxRowCount,
	}

	var rules []transform.SupplementRule
	if cfg.Supplement.RulesPath != "" {
		loaded, err := transform.LoadRules(cfg.Supplement.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load supplement rules: %w", err)
		}
		rules = loaded
	}

	heavy := &errgroup.Group{}
	if cfg.Pipeline.MaxConcurrentHeavy > 0 {
		heavy.SetLimit(cfg.Pipeline.MaxConcurrentHeavy)
	}

	return &Coordinator{
		store:       st,
		files:       files,
		detector:    parser.NewFormatDetector(detectorCfg),
		transformer: transform.NewTransformer(),
		supplement:  transform.NewSupplementManager(),
		validator:   quality.NewValidator(validatorCfg),
		matcher:     matcher.NewMatcher(matcherCfg),
		router:      routing.NewEngine(thresholds),
		rules:       rules,
		fastTimeout: time.Duration(cfg.Pipeline.FastTimeoutSeconds) * time.Second,
		heavy:       heavy,
	}, nil
}

// IngestOptions 摄取选项
type IngestOptions struct {
	UploadID     string
	Filename     string
	FileFormat   string // csv/json/xlsx/xml
	Data         []byte
	SourceSystem string
	DocumentType string

	// 可选：本次上传为头表，与之前暂存的明细合并
	PendingUploadID string

	// 可选：摄取后对往来单位做主数据匹配
	MatchEntityType string

	// 路由信号中由调用方声明的复杂度标记
	NeedsComplexMapping   bool
	NeedsDeepQualityCheck bool
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/routing/stage_done/done/warning/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// IngestResult 摄取结果汇总
type IngestResult struct {
	UploadID   string                   `json:"uploadId"`
	Detection  model.FormatDetection    `json:"detection"`
	Routing    model.RoutingDecision    `json:"routing"`
	Records    []*model.CanonicalRecord `json:"records"`
	Report     *model.QualityReport     `json:"report"`
	Candidates []model.MatchCandidate   `json:"candidates,omitempty"`
	MatchStats *model.MatchStatistics   `json:"matchStats,omitempty"`
	Pending    int                      `json:"pending"` // 暂存待补全的明细数
	Duration   time.Duration            `json:"duration"`
}

// Ingest 执行摄取，返回进度通道
func (c *Coordinator) Ingest(ctx context.Context, opts IngestOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doIngest(ctx, opts, progressChan)
	}()

	return progressChan
}

// doIngest 执行摄取逻辑
func (c *Coordinator) doIngest(ctx context.Context, opts IngestOptions, progressChan chan ProgressEvent) {
	startTime := time.Now()

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: "开始摄取单据文件",
		Data: map[string]string{
			"filename": opts.Filename,
			"format":   opts.FileFormat,
		},
		Timestamp: time.Now(),
	})

	locator, err := c.files.Save(opts.Data)
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("保存文件失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	if err := c.store.CreateUploadLog(opts.UploadID, opts.Filename, opts.FileFormat,
		int64(len(opts.Data)), locator, opts.SourceSystem, opts.DocumentType); err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("创建上传日志失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	records, err := parser.ParseRows(opts.Data, opts.FileFormat)
	if err != nil {
		c.failIngest(opts.UploadID, progressChan, fmt.Sprintf("解析文件失败: %v", err))
		return
	}

	detection, err := c.detector.Detect(records)
	if err != nil {
		c.failIngest(opts.UploadID, progressChan, fmt.Sprintf("格式识别失败: %v", err))
		return
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "stage_done",
		Message: fmt.Sprintf("识别为 %s (置信度: %.2f)", detection.FormatType, detection.Confidence),
		Data: map[string]interface{}{
			"format_type": detection.FormatType,
			"confidence":  detection.Confidence,
		},
		Timestamp: time.Now(),
	})

	signals := model.RoutingSignals{
		FileFormat:            opts.FileFormat,
		FileSizeBytes:         int64(len(opts.Data)),
		EstimatedRowCount:     len(records),
		NeedsComplexMapping:   opts.NeedsComplexMapping,
		NeedsComplexETL:       needsComplexETL(detection.FormatType),
		NeedsDeepQualityCheck: opts.NeedsDeepQualityCheck,
	}
	decision := c.router.Decide(signals)

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "routing",
		Message: fmt.Sprintf("路由至 %s 通道", decision.Path),
		Data:    decision,
		Timestamp: time.Now(),
	})

	var result *IngestResult
	if decision.Path == model.PathFast {
		result, err = c.runFast(ctx, opts, records, detection, progressChan)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			// 快通道超时降级为重通道重试一次
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   "快通道超时，降级为重通道重试",
				Timestamp: time.Now(),
			})
			decision.Path = model.PathHeavy
			decision.TriggeredReasons = append(decision.TriggeredReasons, "快通道处理超时")
			result, err = c.runHeavy(ctx, opts, records, detection, progressChan)
		}
	} else {
		result, err = c.runHeavy(ctx, opts, records, detection, progressChan)
	}
	if err != nil {
		c.failIngest(opts.UploadID, progressChan, err.Error())
		return
	}

	result.Detection = detection
	result.Routing = decision
	result.Duration = time.Since(startTime)

	columnCount := 0
	if len(records) > 0 {
		columnCount = len(records[0].Columns)
	}
	if err := c.store.CompleteUploadLog(opts.UploadID, len(records), columnCount, detection, decision.Path); err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("更新上传日志失败: %v", err),
			Timestamp: time.Now(),
		})
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   "摄取完成",
		Data:      result,
		Timestamp: time.Now(),
	})
}

// runFast 快通道，受超时约束
func (c *Coordinator) runFast(ctx context.Context, opts IngestOptions, records []model.RawRecord,
	detection model.FormatDetection, progressChan chan ProgressEvent) (*IngestResult, error) {
	fastCtx, cancel := context.WithTimeout(ctx, c.fastTimeout)
	defer cancel()
	return c.process(fastCtx, opts, records, detection, progressChan)
}

// runHeavy 重通道，经并发受限的工作组执行
func (c *Coordinator) runHeavy(ctx context.Context, opts IngestOptions, records []model.RawRecord,
	detection model.FormatDetection, progressChan chan ProgressEvent) (*IngestResult, error) {
	type outcome struct {
		result *IngestResult
		err    error
	}
	done := make(chan outcome, 1)
	c.heavy.Go(func() error {
		result, err := c.process(ctx, opts, records, detection, progressChan)
		done <- outcome{result, err}
		return nil
	})
	out := <-done
	return out.result, out.err
}

// process 核心处理：转换、补全、质检、匹配
func (c *Coordinator) process(ctx context.Context, opts IngestOptions, records []model.RawRecord,
	detection model.FormatDetection, progressChan chan ProgressEvent) (*IngestResult, error) {
	result := &IngestResult{UploadID: opts.UploadID}

	canonical, err := c.transformer.Transform(records, detection)
	if err != nil {
		return nil, fmt.Errorf("转换失败: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "stage_done",
		Message:   fmt.Sprintf("转换完成: %d 条规范记录", len(canonical)),
		Timestamp: time.Now(),
	})

	// 头表上传：与之前暂存的明细合并
	if opts.PendingUploadID != "" {
		canonical, err = c.joinPending(opts.PendingUploadID, canonical, records, progressChan)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 明细先到：暂存等待头表
	if transform.NeedsSupplement(canonical) {
		pending := pendingRecords(canonical)
		if err := c.store.SavePendingDetails(opts.UploadID, pending); err != nil {
			return nil, fmt.Errorf("暂存明细失败: %w", err)
		}
		result.Pending = len(pending)
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "stage_done",
			Message:   fmt.Sprintf("%d 条明细暂存，等待头表上传", len(pending)),
			Timestamp: time.Now(),
		})
	}

	if len(c.rules) > 0 {
		if err := c.supplement.ApplyRules(canonical, c.rules); err != nil {
			return nil, fmt.Errorf("应用补全规则失败: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report, err := c.validator.Validate(canonical)
	if err != nil {
		return nil, fmt.Errorf("质量评估失败: %w", err)
	}
	if _, err := c.store.SaveQualityReport(opts.UploadID, report); err != nil {
		return nil, fmt.Errorf("保存质量报告失败: %w", err)
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "stage_done",
		Message: fmt.Sprintf("质量评估完成: %s (%.2f)", report.QualityLevel, report.OverallScore),
		Data: map[string]interface{}{
			"quality_level": report.QualityLevel,
			"overall_score": report.OverallScore,
			"issues":        len(report.Issues),
		},
		Timestamp: time.Now(),
	})

	result.Records = canonical
	result.Report = report
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.MatchEntityType != "" {
		candidates, stats, err := c.matchCounterparties(opts, canonical)
		if err != nil {
			return nil, err
		}
		result.Candidates = candidates
		result.MatchStats = &stats
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "stage_done",
			Message:   fmt.Sprintf("主数据匹配完成: %d/%d 命中", stats.Matched, stats.Total),
			Data:      stats,
			Timestamp: time.Now(),
		})
	}

	return result, nil
}

// joinPending 以本次上传的头表行补全暂存明细
func (c *Coordinator) joinPending(pendingUploadID string, canonical []*model.CanonicalRecord,
	headerRows []model.RawRecord, progressChan chan ProgressEvent) ([]*model.CanonicalRecord, error) {
	stored, err := c.store.LoadPendingDetails(pendingUploadID)
	if err != nil {
		return nil, fmt.Errorf("读取暂存明细失败: %w", err)
	}
	if len(stored) == 0 {
		return canonical, nil
	}

	details := make([]*model.CanonicalRecord, len(stored))
	for i := range stored {
		details[i] = &stored[i]
	}

	joined, err := c.supplement.JoinWithHeaderTable(details, headerRows)
	if err != nil {
		return nil, fmt.Errorf("头表合并失败: %w", err)
	}

	if err := c.store.DeletePendingDetails(pendingUploadID); err != nil {
		return nil, fmt.Errorf("清除暂存明细失败: %w", err)
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "stage_done",
		Message:   fmt.Sprintf("头表合并完成: %d 条补全, %d 条未命中", joined.Enriched, joined.Unmatched),
		Timestamp: time.Now(),
	})

	// 合并后的明细取代头表自身的规范记录
	return details, nil
}

// matchCounterparties 对往来单位做主数据匹配并落库
func (c *Coordinator) matchCounterparties(opts IngestOptions, canonical []*model.CanonicalRecord) ([]model.MatchCandidate, model.MatchStatistics, error) {
	catalog, err := c.store.CatalogSnapshot(opts.MatchEntityType)
	if err != nil {
		return nil, model.MatchStatistics{}, fmt.Errorf("读取主数据快照失败: %w", err)
	}

	values := matcher.UniqueValues(canonical, func(r *model.CanonicalRecord) string {
		return r.Counterparty
	})

	matchCfg := model.MatchConfig{
		EntityType:  opts.MatchEntityType,
		MatchFields: []string{"name", "alias"},
	}
	candidates, stats, err := c.matcher.MatchBatch(values, matchCfg, catalog)
	if err != nil {
		return nil, model.MatchStatistics{}, fmt.Errorf("主数据匹配失败: %w", err)
	}

	if err := c.store.SaveMatchHistory(opts.UploadID, opts.MatchEntityType, candidates); err != nil {
		return nil, model.MatchStatistics{}, fmt.Errorf("保存匹配历史失败: %w", err)
	}
	return candidates, stats, nil
}

// failIngest 标记失败并发送错误事件
func (c *Coordinator) failIngest(uploadID string, progressChan chan ProgressEvent, message string) {
	if err := c.store.FailUploadLog(uploadID, message); err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("标记失败状态出错: %v", err),
			Timestamp: time.Now(),
		})
	}
	c.sendProgress(progressChan, ProgressEvent{
		Type:      "error",
		Message:   message,
		Timestamp: time.Now(),
	})
}

// needsComplexETL 分离表与纯明细需要合成或合并，按复杂转换处理
func needsComplexETL(format model.FormatType) bool {
	return format == model.FormatSeparatedTables || format == model.FormatDetailOnly
}

// pendingRecords 过滤出等待头表补全的明细
func pendingRecords(records []*model.CanonicalRecord) []model.CanonicalRecord {
	out := []model.CanonicalRecord{}
	for _, r := range records {
		if r.NeedsHeaderTable {
			out = append(out, *r)
		}
	}
	return out
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
