package transform

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"smartdoc/internal/model"
	"smartdoc/internal/parser"
)

// RuleKind 补全规则类型，按固定顺序应用
type RuleKind string

const (
	RuleDefaultValue RuleKind = "default_value"
	RuleCalculated   RuleKind = "calculated"
	RuleLookup       RuleKind = "lookup"
)

// ruleOrder 应用次序：后序规则可以引用前序规则已补全的字段
var ruleOrder = map[RuleKind]int{
	RuleDefaultValue: 0,
	RuleCalculated:   1,
	RuleLookup:       2,
}

// SupplementRule 单字段声明式补全规则
type SupplementRule struct {
	Field       string            `yaml:"field"`
	Kind        RuleKind          `yaml:"kind"`
	Value       string            `yaml:"value,omitempty"`      // default_value
	Expression  string            `yaml:"expression,omitempty"` // calculated: "a*b" 或单字段引用
	SourceField string            `yaml:"sourceField,omitempty"`
	Lookup      map[string]string `yaml:"lookup,omitempty"`
}

// RuleFile 补全规则文件
type RuleFile struct {
	Rules []SupplementRule `yaml:"rules"`
}

// LoadRules 从 YAML 文件加载补全规则
func LoadRules(path string) ([]SupplementRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取补全规则失败: %w", err)
	}
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析补全规则失败: %w", err)
	}
	return file.Rules, nil
}

// SupplementManager 对转换层标记为不完整的记录做事后补全
type SupplementManager struct{}

// NewSupplementManager 创建补全管理器
func NewSupplementManager() *SupplementManager {
	return &SupplementManager{}
}

// JoinResult 表关联补全结果
type JoinResult struct {
	Enriched  int `json:"enriched"`
	Unmatched int `json:"unmatched"`
}

// JoinWithHeaderTable 表关联补全：左连接保留每一条明细行
// 未匹配到头表的明细原样通过，系统不凭空捏造头数据
func (m *SupplementManager) JoinWithHeaderTable(details []*model.CanonicalRecord, headerRows []model.RawRecord) (JoinResult, error) {
	result := JoinResult{}
	if len(details) == 0 {
		return result, &model.DataEmptyError{Stage: "表关联补全"}
	}

	// 明细侧关联键：规范化后的单据号
	hasDetailKey := false
	for _, d := range details {
		if strings.TrimSpace(d.DocumentID) != "" && !d.IsSynthesized {
			hasDetailKey = true
			break
		}
	}
	if !hasDetailKey {
		return result, &model.MissingJoinKeyError{Side: "detail", Candidates: []string{string(parser.FieldDocumentID)}}
	}

	// 头表侧关联键：同一套别名启发独立解析
	if len(headerRows) == 0 {
		return result, &model.DataEmptyError{Stage: "头表数据集"}
	}
	headerKey, ok := parser.FindJoinKey(headerRows[0].Columns)
	if !ok {
		return result, &model.MissingJoinKeyError{Side: "header", Candidates: headerRows[0].Columns}
	}

	headerIndex := parser.BuildFieldIndex(headerRows[0].Columns)
	byKey := make(map[string]*model.CanonicalRecord, len(headerRows))
	for _, row := range headerRows {
		key := strings.TrimSpace(row.Get(headerKey))
		if key == "" {
			continue
		}
		if _, exists := byKey[key]; exists {
			continue // 同键取首条，保持确定性
		}
		byKey[key] = extract(row, headerIndex)
	}

	for _, d := range details {
		h, found := byKey[strings.TrimSpace(d.DocumentID)]
		if !found {
			result.Unmatched++
			continue
		}
		if d.DocumentDate == "" {
			d.DocumentDate = h.DocumentDate
		}
		if d.Counterparty == "" {
			d.Counterparty = h.Counterparty
		}
		if d.TotalAmount == 0 {
			d.TotalAmount = h.TotalAmount
		}
		d.HasHeader = true
		d.NeedsHeaderTable = false
		d.RecordType = model.RecordTypeDetailWithHeader
		result.Enriched++
	}
	return result, nil
}

// ApplyRules 规则补全：default_value → calculated → lookup 固定次序
func (m *SupplementManager) ApplyRules(records []*model.CanonicalRecord, rules []SupplementRule) error {
	for _, r := range rules {
		if _, known := ruleOrder[r.Kind]; !known {
			return fmt.Errorf("未知的补全规则类型: %s", r.Kind)
		}
	}

	ordered := make([]SupplementRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ruleOrder[ordered[i].Kind] < ruleOrder[ordered[j].Kind]
	})

	for _, rule := range ordered {
		for _, rec := range records {
			applyRule(rec, rule)
		}
	}
	return nil
}

func applyRule(rec *model.CanonicalRecord, rule SupplementRule) {
	switch rule.Kind {
	case RuleDefaultValue:
		if getField(rec, rule.Field) == "" {
			setField(rec, rule.Field, rule.Value)
		}
	case RuleCalculated:
		if getField(rec, rule.Field) != "" && getField(rec, rule.Field) != "0" {
			return
		}
		if v, ok := evalExpression(rec, rule.Expression); ok {
			setField(rec, rule.Field, v)
		}
	case RuleLookup:
		if getField(rec, rule.Field) != "" {
			return
		}
		source := getField(rec, rule.SourceField)
		if mapped, ok := rule.Lookup[source]; ok {
			setField(rec, rule.Field, mapped)
		}
	}
}

// evalExpression 计算表达式：支持 "a*b" 两字段乘积或单字段引用
func evalExpression(rec *model.CanonicalRecord, expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", false
	}
	if parts := strings.SplitN(expr, "*", 2); len(parts) == 2 {
		a, okA := parser.ParseAmount(getField(rec, strings.TrimSpace(parts[0])))
		b, okB := parser.ParseAmount(getField(rec, strings.TrimSpace(parts[1])))
		if !okA || !okB {
			return "", false
		}
		return formatAmount(a * b), true
	}
	v := getField(rec, expr)
	if v == "" {
		return "", false
	}
	return v, true
}

// getField 按规范字段名读取记录字段，兜底查 Extras
func getField(rec *model.CanonicalRecord, field string) string {
	switch parser.CanonicalField(field) {
	case parser.FieldDocumentID:
		return rec.DocumentID
	case parser.FieldDocumentDate:
		return rec.DocumentDate
	case parser.FieldCounterparty:
		return rec.Counterparty
	case parser.FieldTotalAmount:
		return formatAmount(rec.TotalAmount)
	case parser.FieldItemName:
		return rec.ItemName
	case parser.FieldQuantity:
		return formatAmount(rec.Quantity)
	case parser.FieldUnitPrice:
		return rec.Extras[string(parser.FieldUnitPrice)]
	case parser.FieldAmount:
		return formatAmount(rec.Amount)
	case parser.FieldCategory:
		return rec.Category
	}
	return rec.Extras[field]
}

// setField 按规范字段名写入记录字段，数值字段做容错解析
func setField(rec *model.CanonicalRecord, field, value string) {
	switch parser.CanonicalField(field) {
	case parser.FieldDocumentID:
		rec.DocumentID = value
	case parser.FieldDocumentDate:
		rec.DocumentDate = value
	case parser.FieldCounterparty:
		rec.Counterparty = value
	case parser.FieldTotalAmount:
		if v, ok := parser.ParseAmount(value); ok {
			rec.TotalAmount = v
		}
	case parser.FieldItemName:
		rec.ItemName = value
	case parser.FieldQuantity:
		if v, ok := parser.ParseAmount(value); ok {
			rec.Quantity = v
		}
	case parser.FieldAmount:
		if v, ok := parser.ParseAmount(value); ok {
			rec.Amount = v
		}
	case parser.FieldCategory:
		rec.Category = value
	default:
		if rec.Extras == nil {
			rec.Extras = make(map[string]string)
		}
		rec.Extras[field] = value
	}
}

func formatAmount(v float64) string {
	if v == 0 {
		return "0"
	}
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
