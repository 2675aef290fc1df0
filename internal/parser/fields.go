package parser

import (
	"regexp"
	"strings"
)

// CanonicalField 规范字段
type CanonicalField string

const (
	FieldDocumentID   CanonicalField = "document_id"
	FieldDocumentDate CanonicalField = "document_date"
	FieldCounterparty CanonicalField = "counterparty"
	FieldTotalAmount  CanonicalField = "total_amount"
	FieldDocumentType CanonicalField = "document_type"
	FieldItemName     CanonicalField = "item_name"
	FieldQuantity     CanonicalField = "quantity"
	FieldUnitPrice    CanonicalField = "unit_price"
	FieldAmount       CanonicalField = "amount"
	FieldCategory     CanonicalField = "category"
)

// fieldOrder 解析列名时的检查顺序（更具体的字段在前，避免“总金额”命中“金额”）
var fieldOrder = []CanonicalField{
	FieldDocumentID,
	FieldDocumentDate,
	FieldCounterparty,
	FieldTotalAmount,
	FieldDocumentType,
	FieldItemName,
	FieldQuantity,
	FieldUnitPrice,
	FieldCategory,
	FieldAmount,
}

// fieldAliases 规范字段 → 候选别名（有序，先命中者先赢）
// 中英文同义词集中在这一张表，识别、转换、关联键发现共用
var fieldAliases = map[CanonicalField][]string{
	FieldDocumentID:   {"单据号", "单据编号", "订单号", "订单编号", "发票号", "凭证号", "document_no", "doc_no", "order_no", "invoice_no"},
	FieldDocumentDate: {"单据日期", "开单日期", "订单日期", "日期", "document_date", "order_date", "date"},
	FieldCounterparty: {"客户名称", "供应商名称", "往来单位", "客户", "供应商", "customer", "supplier", "counterparty"},
	FieldTotalAmount:  {"总金额", "金额合计", "合计金额", "价税合计", "总计", "合计", "total_amount", "total"},
	FieldDocumentType: {"单据类型", "业务类型", "服务类型", "document_type", "business_type", "service_type"},
	FieldItemName:     {"产品名称", "商品名称", "物料名称", "产品", "商品", "品名", "item_name", "product", "item"},
	FieldQuantity:     {"数量", "quantity", "qty"},
	FieldUnitPrice:    {"单价", "unit_price", "price"},
	FieldCategory:     {"类别", "分类", "品类", "部门", "category", "dept"},
	FieldAmount:       {"金额", "amount"},
}

// DefaultCategoryLabel 明细分组兜底标签
const DefaultCategoryLabel = "未分类"

// headerFieldSet 单据头口径字段
var headerFieldSet = map[CanonicalField]bool{
	FieldDocumentID:   true,
	FieldDocumentDate: true,
	FieldCounterparty: true,
	FieldTotalAmount:  true,
	FieldDocumentType: true,
}

// detailFieldSet 明细口径字段
var detailFieldSet = map[CanonicalField]bool{
	FieldItemName:  true,
	FieldQuantity:  true,
	FieldUnitPrice: true,
	FieldAmount:    true,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名，去除空白并统一全角符号
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	name = strings.ReplaceAll(name, "（", "(")
	name = strings.ReplaceAll(name, "）", ")")
	name = strings.ReplaceAll(name, "：", ":")
	name = whitespaceRe.ReplaceAllString(name, "")
	return strings.ToLower(name)
}

// ResolveField 将原始列名解析为规范字段（大小写不敏感的包含匹配）
func ResolveField(column string) (CanonicalField, bool) {
	col := NormalizeColumnName(column)
	if col == "" {
		return "", false
	}
	for _, field := range fieldOrder {
		for _, alias := range fieldAliases[field] {
			if strings.Contains(col, strings.ToLower(alias)) {
				return field, true
			}
		}
	}
	return "", false
}

// IsHeaderField 是否单据头口径字段
func IsHeaderField(f CanonicalField) bool { return headerFieldSet[f] }

// IsDetailField 是否明细口径字段
func IsDetailField(f CanonicalField) bool { return detailFieldSet[f] }

// FieldIndex 规范字段 → 原始列名（针对一组列名，先命中者先赢）
type FieldIndex map[CanonicalField]string

// BuildFieldIndex 针对一组原始列名建立字段索引
func BuildFieldIndex(columns []string) FieldIndex {
	index := make(FieldIndex)
	for _, col := range columns {
		field, ok := ResolveField(col)
		if !ok {
			continue
		}
		if _, exists := index[field]; !exists {
			index[field] = col
		}
	}
	return index
}

// Column 取规范字段对应的原始列名
func (fi FieldIndex) Column(f CanonicalField) (string, bool) {
	col, ok := fi[f]
	return col, ok
}

// HeaderFieldCount 已识别的单据头字段数
func (fi FieldIndex) HeaderFieldCount() int {
	n := 0
	for f := range fi {
		if IsHeaderField(f) {
			n++
		}
	}
	return n
}

// DetailFieldCount 已识别的明细字段数
func (fi FieldIndex) DetailFieldCount() int {
	n := 0
	for f := range fi {
		if IsDetailField(f) {
			n++
		}
	}
	return n
}

// FindJoinKey 关联键发现：返回映射到单据号的原始列名
// 头表侧与明细表侧各自独立调用同一套别名启发
func FindJoinKey(columns []string) (string, bool) {
	return BuildFieldIndex(columns).Column(FieldDocumentID)
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
