package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"smartdoc/internal/model"
	"smartdoc/internal/parser"
)

// Weights 综合得分权重，来自配置而非编译期常量
type Weights struct {
	Completeness float64 `json:"completeness" toml:"completeness"`
	Accuracy     float64 `json:"accuracy" toml:"accuracy"`
	Consistency  float64 `json:"consistency" toml:"consistency"`
}

// DefaultWeights 默认权重 0.5 / 0.3 / 0.2
func DefaultWeights() Weights {
	return Weights{Completeness: 0.5, Accuracy: 0.3, Consistency: 0.2}
}

// ValidatorConfig 质量校验配置
type ValidatorConfig struct {
	Weights Weights

	// ExpectedFields 完整度口径的期望字段数
	ExpectedFields int

	// OutlierSigma 金额离群判定的标准差倍数
	OutlierSigma float64

	// MinOutlierSamples 少于该样本数不做离群检测
	MinOutlierSamples int
}

// DefaultValidatorConfig 默认校验配置
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		Weights:           DefaultWeights(),
		ExpectedFields:    7,
		OutlierSigma:      3,
		MinOutlierSamples: 4,
	}
}

// Validator 质量校验器：只读扫描规范记录集，从不修改输入
type Validator struct {
	cfg ValidatorConfig
}

// NewValidator 创建校验器
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.ExpectedFields <= 0 {
		cfg.ExpectedFields = 7
	}
	return &Validator{cfg: cfg}
}

// Validate 产出质量报告
func (v *Validator) Validate(records []*model.CanonicalRecord) (*model.QualityReport, error) {
	if len(records) == 0 {
		return nil, &model.DataEmptyError{Stage: "质量校验"}
	}

	report := &model.QualityReport{
		RecordCount: len(records),
		Issues:      []model.QualityIssue{},
	}

	report.CompletenessScore = v.completeness(records)
	report.AccuracyScore = v.accuracy(records, report)
	report.ConsistencyScore = v.consistency(records, report)

	v.checkDuplicates(records, report)
	v.checkOutliers(records, report)

	w := v.cfg.Weights
	overall := w.Completeness*report.CompletenessScore +
		w.Accuracy*report.AccuracyScore +
		w.Consistency*report.ConsistencyScore
	report.OverallScore = clamp01(overall)
	report.QualityLevel = levelFor(report.OverallScore)

	return report, nil
}

// completeness 每条记录非空字段数 / 期望字段数，取均值
func (v *Validator) completeness(records []*model.CanonicalRecord) float64 {
	sum := 0.0
	for _, r := range records {
		filled := 0
		if strings.TrimSpace(r.DocumentID) != "" {
			filled++
		}
		if strings.TrimSpace(r.DocumentDate) != "" {
			filled++
		}
		if strings.TrimSpace(r.Counterparty) != "" {
			filled++
		}
		if r.TotalAmount != 0 {
			filled++
		}
		if strings.TrimSpace(r.ItemName) != "" {
			filled++
		}
		if r.Quantity != 0 {
			filled++
		}
		if r.Amount != 0 {
			filled++
		}
		ratio := float64(filled) / float64(v.cfg.ExpectedFields)
		if ratio > 1 {
			ratio = 1
		}
		sum += ratio
	}
	return sum / float64(len(records))
}

// accuracy 必填字段（单据号、金额）齐备且类型有效的记录占比
func (v *Validator) accuracy(records []*model.CanonicalRecord, report *model.QualityReport) float64 {
	missingDocRows := []int{}
	missingAmountRows := []int{}
	badDateRows := []int{}

	valid := 0
	for _, r := range records {
		ok := true

		if strings.TrimSpace(r.DocumentID) == "" {
			missingDocRows = append(missingDocRows, r.RowIndex)
			ok = false
		}

		amount := r.Amount
		if !r.HasDetails {
			amount = r.TotalAmount
		}
		if amount <= 0 {
			missingAmountRows = append(missingAmountRows, r.RowIndex)
			ok = false
		}

		if d := strings.TrimSpace(r.DocumentDate); d != "" {
			if _, dateOK := parser.ParseDate(d); !dateOK {
				badDateRows = append(badDateRows, r.RowIndex)
				ok = false
			}
		}

		if ok {
			valid++
		}
	}

	if len(missingDocRows) > 0 {
		report.Issues = append(report.Issues, model.QualityIssue{
			Type:         model.IssueMissingField,
			Field:        "document_id",
			AffectedRows: missingDocRows,
			Severity:     model.SeverityHigh,
			Suggestion:   "补充单据号，或确认来源文件是否遗漏了单号列",
		})
	}
	if len(missingAmountRows) > 0 {
		report.Issues = append(report.Issues, model.QualityIssue{
			Type:         model.IssueMissingField,
			Field:        "amount",
			AffectedRows: missingAmountRows,
			Severity:     model.SeverityHigh,
			Suggestion:   "金额缺失或非正数，请核对金额列取值",
		})
	}
	if len(badDateRows) > 0 {
		report.Issues = append(report.Issues, model.QualityIssue{
			Type:         model.IssueTypeMismatch,
			Field:        "document_date",
			AffectedRows: badDateRows,
			Severity:     model.SeverityMedium,
			Suggestion:   "日期无法解析或超出合理区间，建议使用 YYYY-MM-DD 格式",
		})
	}

	return float64(valid) / float64(len(records))
}

// consistency 1 − 违反数 / 检查总数，规则：金额≥0、总额≥0、数量≥0
func (v *Validator) consistency(records []*model.CanonicalRecord, report *model.QualityReport) float64 {
	checks := 0
	violations := 0
	negativeAmountRows := []int{}

	for _, r := range records {
		checks++
		if r.Amount < 0 {
			violations++
			negativeAmountRows = append(negativeAmountRows, r.RowIndex)
		}
		checks++
		if r.TotalAmount < 0 {
			violations++
		}
		checks++
		if r.Quantity < 0 {
			violations++
		}
	}

	if len(negativeAmountRows) > 0 {
		report.Issues = append(report.Issues, model.QualityIssue{
			Type:         model.IssueTypeMismatch,
			Field:        "amount",
			AffectedRows: negativeAmountRows,
			Severity:     model.SeverityHigh,
			Suggestion:   "存在负数金额，请确认是否为红冲单据并单独处理",
		})
	}

	if checks == 0 {
		return 1
	}
	return 1 - float64(violations)/float64(checks)
}

// checkDuplicates 同一单据号+品名+金额视为重复行
func (v *Validator) checkDuplicates(records []*model.CanonicalRecord, report *model.QualityReport) {
	seen := make(map[string]bool, len(records))
	dupRows := []int{}
	for _, r := range records {
		if !r.HasDetails {
			continue
		}
		key := fmt.Sprintf("%s|%s|%v", r.DocumentID, r.ItemName, r.Amount)
		if seen[key] {
			dupRows = append(dupRows, r.RowIndex)
			continue
		}
		seen[key] = true
	}
	if len(dupRows) > 0 {
		report.Issues = append(report.Issues, model.QualityIssue{
			Type:         model.IssueDuplicate,
			Field:        "document_id",
			AffectedRows: dupRows,
			Severity:     model.SeverityMedium,
			Suggestion:   "相同单据号下存在完全相同的明细行，建议去重后重新上传",
		})
	}
}

// checkOutliers 金额偏离均值超过 sigma 倍标准差视为离群
func (v *Validator) checkOutliers(records []*model.CanonicalRecord, report *model.QualityReport) {
	amounts := make([]float64, 0, len(records))
	rows := make([]int, 0, len(records))
	for _, r := range records {
		if r.HasDetails && r.Amount > 0 {
			amounts = append(amounts, r.Amount)
			rows = append(rows, r.RowIndex)
		}
	}
	if len(amounts) < v.cfg.MinOutlierSamples {
		return
	}

	mean := 0.0
	for _, a := range amounts {
		mean += a
	}
	mean /= float64(len(amounts))

	variance := 0.0
	for _, a := range amounts {
		variance += (a - mean) * (a - mean)
	}
	stddev := math.Sqrt(variance / float64(len(amounts)))
	if stddev == 0 {
		return
	}

	outlierRows := []int{}
	for i, a := range amounts {
		if math.Abs(a-mean) > v.cfg.OutlierSigma*stddev {
			outlierRows = append(outlierRows, rows[i])
		}
	}
	if len(outlierRows) > 0 {
		sort.Ints(outlierRows)
		report.Issues = append(report.Issues, model.QualityIssue{
			Type:         model.IssueOutlier,
			Field:        "amount",
			AffectedRows: outlierRows,
			Severity:     model.SeverityLow,
			Suggestion:   fmt.Sprintf("金额显著偏离均值（超过 %.0f 倍标准差），建议人工复核", v.cfg.OutlierSigma),
		})
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func levelFor(score float64) model.QualityLevel {
	switch {
	case score >= 0.9:
		return model.QualityExcellent
	case score >= 0.75:
		return model.QualityGood
	case score >= 0.5:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}
