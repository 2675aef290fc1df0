package model

// FormatType 单据文件结构类型
type FormatType string

const (
	FormatRepeatedHeader  FormatType = "repeated_header"   // 每行都带单据头
	FormatFirstRowHeader  FormatType = "first_row_header"  // 首行带头，后续仅明细
	FormatSeparatedTables FormatType = "separated_tables"  // 头表/明细表物理分离
	FormatHeaderOnly      FormatType = "header_only"       // 仅单据头汇总
	FormatDetailOnly      FormatType = "detail_only"       // 仅明细流水
	FormatPureHeader      FormatType = "pure_header"       // 纯单据头（无明细口径）
	FormatUnknown         FormatType = "unknown"
)

// FormatPriority 平分时的固定优先顺序
var FormatPriority = []FormatType{
	FormatRepeatedHeader,
	FormatFirstRowHeader,
	FormatSeparatedTables,
	FormatHeaderOnly,
	FormatDetailOnly,
	FormatPureHeader,
}

// FormatDetection 格式识别结果
type FormatDetection struct {
	FormatType      FormatType `json:"formatType"`
	Confidence      float64    `json:"confidence"` // 置信度 0-1
	Characteristics []string   `json:"characteristics"`
}
