package transform

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"smartdoc/internal/model"
	"smartdoc/internal/parser"
)

// Transformer 按识别格式把原始行集规范化为统一记录
type Transformer struct{}

// NewTransformer 创建转换器
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform 规范化入口，按格式分派转换策略
func (t *Transformer) Transform(records []model.RawRecord, detection model.FormatDetection) ([]*model.CanonicalRecord, error) {
	if len(records) == 0 {
		return nil, &model.DataEmptyError{Stage: "规范化转换"}
	}

	index := parser.BuildFieldIndex(records[0].Columns)

	switch detection.FormatType {
	case model.FormatRepeatedHeader:
		return t.transformRepeatedHeader(records, index), nil
	case model.FormatFirstRowHeader:
		return t.transformFirstRowHeader(records, index), nil
	case model.FormatSeparatedTables:
		return t.transformSeparatedTables(records, index), nil
	case model.FormatHeaderOnly:
		return t.transformHeaderOnly(records, index), nil
	case model.FormatDetailOnly:
		return t.transformDetailOnly(records, index), nil
	case model.FormatPureHeader:
		return t.transformPureHeader(records, index), nil
	default:
		return nil, fmt.Errorf("未知的单据格式: %s", detection.FormatType)
	}
}

// NeedsSupplement 转换结果中是否存在等待头表补全的记录
func NeedsSupplement(records []*model.CanonicalRecord) bool {
	for _, r := range records {
		if r.NeedsHeaderTable {
			return true
		}
	}
	return false
}

// extract 公共字段抽取：规范字段取值 + 未映射列入 Extras
func extract(rec model.RawRecord, index parser.FieldIndex) *model.CanonicalRecord {
	out := &model.CanonicalRecord{RowIndex: rec.RowIndex}

	getRaw := func(f parser.CanonicalField) string {
		col, ok := index.Column(f)
		if !ok {
			return ""
		}
		return rec.Get(col)
	}

	out.DocumentID = getRaw(parser.FieldDocumentID)
	out.DocumentDate = getRaw(parser.FieldDocumentDate)
	out.Counterparty = getRaw(parser.FieldCounterparty)
	out.ItemName = getRaw(parser.FieldItemName)
	out.Category = getRaw(parser.FieldCategory)

	if v, ok := parser.ParseAmount(getRaw(parser.FieldTotalAmount)); ok {
		out.TotalAmount = v
	}
	if v, ok := parser.ParseAmount(getRaw(parser.FieldQuantity)); ok {
		out.Quantity = v
	}
	if v, ok := parser.ParseAmount(getRaw(parser.FieldAmount)); ok {
		out.Amount = v
	}
	// 单价不入规范记录本体，保留在 Extras 供计算型补全规则引用
	if v := getRaw(parser.FieldUnitPrice); v != "" {
		if out.Extras == nil {
			out.Extras = make(map[string]string)
		}
		out.Extras[string(parser.FieldUnitPrice)] = v
	}

	mapped := make(map[string]bool, len(index))
	for _, col := range index {
		mapped[col] = true
	}
	for _, col := range rec.Columns {
		if col == "" || mapped[col] {
			continue
		}
		if v := rec.Get(col); v != "" {
			if out.Extras == nil {
				out.Extras = make(map[string]string)
			}
			out.Extras[col] = v
		}
	}
	return out
}

// ensureDocumentID 单据号兜底：缺失时合成，保证每条记录可追踪
func ensureDocumentID(rec *model.CanonicalRecord) {
	if strings.TrimSpace(rec.DocumentID) == "" {
		rec.DocumentID = "GEN-" + uuid.New().String()[:8]
		rec.IsSynthesized = true
	}
}

func (t *Transformer) transformRepeatedHeader(records []model.RawRecord, index parser.FieldIndex) []*model.CanonicalRecord {
	out := make([]*model.CanonicalRecord, 0, len(records))
	for _, rec := range records {
		c := extract(rec, index)
		c.RecordType = model.RecordTypeComplete
		c.HasHeader = true
		c.HasDetails = true
		ensureDocumentID(c)
		out = append(out, c)
	}
	return out
}

func (t *Transformer) transformFirstRowHeader(records []model.RawRecord, index parser.FieldIndex) []*model.CanonicalRecord {
	out := make([]*model.CanonicalRecord, 0, len(records))

	head := extract(records[0], index)
	head.RecordType = model.RecordTypeComplete
	head.HasHeader = true
	head.HasDetails = true
	ensureDocumentID(head)
	out = append(out, head)

	for _, rec := range records[1:] {
		c := extract(rec, index)
		// 首行头字段下发到后续明细行
		if c.DocumentID == "" {
			c.DocumentID = head.DocumentID
		}
		if c.DocumentDate == "" {
			c.DocumentDate = head.DocumentDate
		}
		if c.Counterparty == "" {
			c.Counterparty = head.Counterparty
		}
		if c.TotalAmount == 0 {
			c.TotalAmount = head.TotalAmount
		}
		c.RecordType = model.RecordTypeDetailWithHeader
		c.HasHeader = true
		c.HasDetails = true
		ensureDocumentID(c)
		out = append(out, c)
	}
	return out
}

func (t *Transformer) transformSeparatedTables(records []model.RawRecord, index parser.FieldIndex) []*model.CanonicalRecord {
	detailSide := index.DetailFieldCount() > 0

	out := make([]*model.CanonicalRecord, 0, len(records))
	for _, rec := range records {
		c := extract(rec, index)
		c.RecordType = model.RecordTypeSeparatedPending
		if detailSide {
			// 明细侧：等待头表补全，不凭空捏造头数据
			c.NeedsHeaderTable = true
			c.HasDetails = true
		} else {
			c.HasHeader = true
		}
		ensureDocumentID(c)
		out = append(out, c)
	}
	return out
}

func (t *Transformer) transformHeaderOnly(records []model.RawRecord, index parser.FieldIndex) []*model.CanonicalRecord {
	out := make([]*model.CanonicalRecord, 0, len(records))
	for _, rec := range records {
		c := extract(rec, index)
		// 为下游补一条虚拟明细：数量 1、金额取本行总额
		c.ItemName = c.Counterparty + "汇总"
		c.Quantity = 1
		c.Amount = c.TotalAmount
		c.RecordType = model.RecordTypeHeaderWithVirtualDetail
		c.HasHeader = true
		c.HasDetails = true
		c.IsSynthesized = true
		ensureDocumentID(c)
		out = append(out, c)
	}
	return out
}

func (t *Transformer) transformDetailOnly(records []model.RawRecord, index parser.FieldIndex) []*model.CanonicalRecord {
	type group struct {
		label string
		rows  []*model.CanonicalRecord
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, rec := range records {
		c := extract(rec, index)
		label := strings.TrimSpace(c.Category)
		if label == "" {
			label = parser.DefaultCategoryLabel
			c.Category = label
		}
		g, ok := groups[label]
		if !ok {
			g = &group{label: label}
			groups[label] = g
			order = append(order, label)
		}
		g.rows = append(g.rows, c)
	}

	out := make([]*model.CanonicalRecord, 0, len(records)+len(groups))
	for _, label := range order {
		g := groups[label]

		header := &model.CanonicalRecord{
			DocumentID:    "VH-" + uuid.New().String()[:8],
			Counterparty:  g.label,
			Category:      g.label,
			RecordType:    model.RecordTypeVirtualHeader,
			HasHeader:     true,
			HasDetails:    false,
			IsSynthesized: true,
		}
		for _, row := range g.rows {
			header.TotalAmount += row.Amount
			header.Quantity += row.Quantity
		}
		out = append(out, header)

		for _, row := range g.rows {
			row.DocumentID = header.DocumentID
			row.HeaderRef = header.DocumentID
			row.RecordType = model.RecordTypeDetailWithVirtualHeader
			row.HasHeader = true
			row.HasDetails = true
			out = append(out, row)
		}
	}
	return out
}

func (t *Transformer) transformPureHeader(records []model.RawRecord, index parser.FieldIndex) []*model.CanonicalRecord {
	out := make([]*model.CanonicalRecord, 0, len(records))
	for _, rec := range records {
		c := extract(rec, index)
		c.RecordType = model.RecordTypeHeaderOnly
		c.HasHeader = true
		// 该格式定义上不携带明细
		c.HasDetails = false
		ensureDocumentID(c)
		out = append(out, c)
	}
	return out
}
