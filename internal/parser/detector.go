package parser

import (
	"smartdoc/internal/model"
)

// DetectorConfig 格式识别阈值配置
type DetectorConfig struct {
	ConfidenceFloor   float64 // 全部得分低于此值视为无法识别
	TieBreakEpsilon   float64 // 得分差小于此值按固定优先级裁决
	SummaryRowLimit   int     // “汇总规模”行数上限
	CompletenessRatio float64 // 重复头格式要求的头明细齐备行占比
}

// DefaultDetectorConfig 默认识别配置
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ConfidenceFloor:   0.3,
		TieBreakEpsilon:   0.01,
		SummaryRowLimit:   100,
		CompletenessRatio: 0.8,
	}
}

// FormatDetector 单据格式识别器
// 对同一输入重复调用必须返回相同结果，识别过程无任何副作用
type FormatDetector struct {
	cfg DetectorConfig
}

// NewFormatDetector 创建格式识别器
func NewFormatDetector(cfg DetectorConfig) *FormatDetector {
	return &FormatDetector{cfg: cfg}
}

// rowStats 识别所需的行集统计，全部识别器共用一次扫描结果
type rowStats struct {
	totalRows int
	index     FieldIndex

	hasDocumentID   bool
	hasCounterparty bool
	hasDocDate      bool
	hasTotalAmount  bool
	hasDocumentType bool
	hasItemName     bool
	hasQuantity     bool
	hasAmount       bool
	hasCategory     bool

	headerFieldCount    int
	detailFieldCount    int
	nonKeyHeaderCount   int // 单据号以外的头字段数（单据号可能只是关联键）
	bothFilledRatio     float64
	firstRowHeaderRatio float64 // 首行头字段非空、后续行头字段为空且带明细的占比
}

func (d *FormatDetector) collectStats(records []model.RawRecord) rowStats {
	stats := rowStats{totalRows: len(records)}
	if len(records) == 0 {
		return stats
	}

	stats.index = BuildFieldIndex(records[0].Columns)
	_, stats.hasDocumentID = stats.index[FieldDocumentID]
	_, stats.hasCounterparty = stats.index[FieldCounterparty]
	_, stats.hasDocDate = stats.index[FieldDocumentDate]
	_, stats.hasTotalAmount = stats.index[FieldTotalAmount]
	_, stats.hasDocumentType = stats.index[FieldDocumentType]
	_, stats.hasItemName = stats.index[FieldItemName]
	_, stats.hasQuantity = stats.index[FieldQuantity]
	_, stats.hasAmount = stats.index[FieldAmount]
	_, stats.hasCategory = stats.index[FieldCategory]

	stats.headerFieldCount = stats.index.HeaderFieldCount()
	stats.detailFieldCount = stats.index.DetailFieldCount()
	stats.nonKeyHeaderCount = stats.headerFieldCount
	if stats.hasDocumentID {
		stats.nonKeyHeaderCount--
	}

	headerCols := make([]string, 0, len(stats.index))
	detailCols := make([]string, 0, len(stats.index))
	for field, col := range stats.index {
		if IsHeaderField(field) {
			headerCols = append(headerCols, col)
		}
		if IsDetailField(field) {
			detailCols = append(detailCols, col)
		}
	}

	rowHasValue := func(rec model.RawRecord, cols []string) bool {
		for _, c := range cols {
			if rec.Get(c) != "" {
				return true
			}
		}
		return false
	}

	bothFilled := 0
	inherited := 0
	for i, rec := range records {
		h := rowHasValue(rec, headerCols)
		dd := rowHasValue(rec, detailCols)
		if h && dd {
			bothFilled++
		}
		if i > 0 && !h && dd {
			inherited++
		}
	}
	stats.bothFilledRatio = float64(bothFilled) / float64(len(records))

	// 首行头字段非空，后续行头字段留空但带明细
	if len(records) > 1 && rowHasValue(records[0], headerCols) {
		stats.firstRowHeaderRatio = float64(inherited) / float64(len(records)-1)
	}

	return stats
}

// formatScorer 单个格式的打分规则
type formatScorer struct {
	Format model.FormatType
	Score  func(s rowStats, cfg DetectorConfig) (float64, []string)
}

// scorers 六个格式识别器，顺序即平分裁决优先级
func (d *FormatDetector) scorers() []formatScorer {
	return []formatScorer{
		{model.FormatRepeatedHeader, scoreRepeatedHeader},
		{model.FormatFirstRowHeader, scoreFirstRowHeader},
		{model.FormatSeparatedTables, scoreSeparatedTables},
		{model.FormatHeaderOnly, scoreHeaderOnly},
		{model.FormatDetailOnly, scoreDetailOnly},
		{model.FormatPureHeader, scorePureHeader},
	}
}

// Detect 识别行集的结构格式
// 空输入返回 DataEmptyError；全部得分低于下限返回 UnsupportedFormatError
func (d *FormatDetector) Detect(records []model.RawRecord) (model.FormatDetection, error) {
	if len(records) == 0 {
		return model.FormatDetection{}, &model.DataEmptyError{Stage: "格式识别"}
	}

	stats := d.collectStats(records)

	type scored struct {
		format model.FormatType
		score  float64
		chars  []string
	}

	results := make([]scored, 0, 6)
	maxScore := 0.0
	for _, sc := range d.scorers() {
		score, chars := sc.Score(stats, d.cfg)
		if score > 1.0 {
			score = 1.0
		}
		results = append(results, scored{sc.Format, score, chars})
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore < d.cfg.ConfidenceFloor {
		best := results[0]
		for _, r := range results[1:] {
			if r.score > best.score {
				best = r
			}
		}
		return model.FormatDetection{}, &model.UnsupportedFormatError{
			BestFormat: best.format,
			BestScore:  best.score,
			Floor:      d.cfg.ConfidenceFloor,
		}
	}

	// 平分裁决：得分与最高分差小于 epsilon 的候选，按固定优先级取最靠前者
	for _, r := range results {
		if maxScore-r.score < d.cfg.TieBreakEpsilon {
			return model.FormatDetection{
				FormatType:      r.format,
				Confidence:      r.score,
				Characteristics: r.chars,
			}, nil
		}
	}

	// 不可达：maxScore 必然命中某个候选
	return model.FormatDetection{}, &model.UnsupportedFormatError{Floor: d.cfg.ConfidenceFloor}
}

func scoreRepeatedHeader(s rowStats, cfg DetectorConfig) (float64, []string) {
	score := 0.0
	chars := []string{}
	if s.hasDocumentID && s.hasCounterparty {
		score += 0.3
		chars = append(chars, "列集包含单据头字段")
	}
	if s.hasItemName && (s.hasQuantity || s.hasAmount) {
		score += 0.3
		chars = append(chars, "列集包含明细字段")
	}
	if s.bothFilledRatio > cfg.CompletenessRatio {
		score += 0.4
		chars = append(chars, "绝大多数行同时携带头与明细")
	}
	return score, chars
}

func scoreFirstRowHeader(s rowStats, cfg DetectorConfig) (float64, []string) {
	score := 0.0
	chars := []string{}
	if s.headerFieldCount > 0 && s.firstRowHeaderRatio > 0 {
		score += 0.4
		chars = append(chars, "首行携带单据头")
	}
	score += 0.4 * s.firstRowHeaderRatio
	if s.firstRowHeaderRatio > 0.5 {
		chars = append(chars, "后续行头字段留空仅带明细")
	}
	if s.detailFieldCount > 0 {
		score += 0.2
		chars = append(chars, "列集包含明细字段")
	}
	return score, chars
}

func scoreSeparatedTables(s rowStats, cfg DetectorConfig) (float64, []string) {
	// 头表侧：全部是头字段；明细侧：除关联键外全部是明细字段
	exclusiveHeader := s.headerFieldCount >= 2 && s.detailFieldCount == 0
	exclusiveDetail := s.detailFieldCount >= 2 && s.nonKeyHeaderCount == 0

	score := 0.0
	chars := []string{}
	switch {
	case exclusiveDetail:
		score += 0.6
		chars = append(chars, "列集仅包含明细字段")
		if s.hasDocumentID {
			score += 0.2
			chars = append(chars, "携带可用于回表关联的单据号")
		}
	case exclusiveHeader:
		score += 0.5
		chars = append(chars, "列集仅包含单据头字段")
		if s.totalRows >= cfg.SummaryRowLimit {
			score += 0.2
			chars = append(chars, "行数超出汇总规模，疑为拆分头表")
		}
	}
	return score, chars
}

func scoreHeaderOnly(s rowStats, cfg DetectorConfig) (float64, []string) {
	score := 0.0
	chars := []string{}
	if s.headerFieldCount >= 3 && s.detailFieldCount == 0 {
		score += 0.4
		chars = append(chars, "单据头字段不少于三个且无明细字段")
	} else {
		return 0, nil
	}
	if s.totalRows < cfg.SummaryRowLimit {
		score += 0.3
		chars = append(chars, "行数符合汇总规模")
	}
	if s.hasTotalAmount {
		score += 0.2
		chars = append(chars, "携带总金额字段")
	}
	return score, chars
}

func scoreDetailOnly(s rowStats, cfg DetectorConfig) (float64, []string) {
	score := 0.0
	chars := []string{}
	if s.detailFieldCount >= 3 && s.headerFieldCount == 0 {
		score += 0.4
		chars = append(chars, "明细字段不少于三个且无单据头字段")
	} else {
		return 0, nil
	}
	if s.hasCategory {
		score += 0.3
		chars = append(chars, "携带可分组的类别字段")
	}
	if s.hasAmount && s.hasQuantity {
		score += 0.3
		chars = append(chars, "金额与数量齐备")
	}
	return score, chars
}

func scorePureHeader(s rowStats, cfg DetectorConfig) (float64, []string) {
	score := 0.0
	chars := []string{}
	if s.headerFieldCount >= 3 && s.detailFieldCount == 0 {
		score += 0.4
		chars = append(chars, "单据头字段不少于三个且无明细字段")
	} else {
		return 0, nil
	}
	if s.hasDocumentType {
		score += 0.4
		chars = append(chars, "携带单据类型/服务类型字段")
	}
	if s.totalRows < cfg.SummaryRowLimit {
		score += 0.2
		chars = append(chars, "行数符合汇总规模")
	}
	return score, chars
}
