package model

// RawRecord 一行原始数据（保留列顺序与 0 基行号）
type RawRecord struct {
	RowIndex int               `json:"rowIndex"`
	Columns  []string          `json:"columns"`
	Values   map[string]string `json:"values"`
}

// Get 按列名取值，列不存在返回空串
func (r RawRecord) Get(column string) string {
	if r.Values == nil {
		return ""
	}
	return r.Values[column]
}

// RecordType 规范记录类型
type RecordType string

const (
	RecordTypeComplete                RecordType = "complete"
	RecordTypeDetailWithHeader        RecordType = "detail_with_header"
	RecordTypeVirtualHeader           RecordType = "virtual_header"
	RecordTypeDetailWithVirtualHeader RecordType = "detail_with_virtual_header"
	RecordTypeHeaderWithVirtualDetail RecordType = "header_with_virtual_detail"
	RecordTypeHeaderOnly              RecordType = "header_only"
	RecordTypeSeparatedPending        RecordType = "separated_pending"
)

// CanonicalRecord 规范化后的单据记录（转换层唯一产物）
type CanonicalRecord struct {
	RowIndex int `json:"rowIndex"`

	// 单据头字段
	DocumentID   string  `json:"documentId"`
	DocumentDate string  `json:"documentDate"`
	Counterparty string  `json:"counterparty"`
	TotalAmount  float64 `json:"totalAmount"`

	// 明细字段
	ItemName string  `json:"itemName"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category,omitempty"`

	RecordType RecordType `json:"recordType"`

	// 来源标记
	HasHeader     bool `json:"hasHeader"`
	HasDetails    bool `json:"hasDetails"`
	IsSynthesized bool `json:"isSynthesized"`

	// 分表格式：等待头表补全
	NeedsHeaderTable bool `json:"needsHeaderTable,omitempty"`

	// 虚拟头关联（明细行指向所属虚拟头的单据号）
	HeaderRef string `json:"headerRef,omitempty"`

	// 未映射的原始字段
	Extras map[string]string `json:"extras,omitempty"`
}

// Clone 深拷贝一条规范记录
func (c *CanonicalRecord) Clone() *CanonicalRecord {
	out := *c
	if c.Extras != nil {
		out.Extras = make(map[string]string, len(c.Extras))
		for k, v := range c.Extras {
			out.Extras[k] = v
		}
	}
	return &out
}
