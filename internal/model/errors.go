package model

import "fmt"

// DataEmptyError 输入无任何数据行
type DataEmptyError struct {
	Stage string
}

func (e *DataEmptyError) Error() string {
	return fmt.Sprintf("数据为空: %s 阶段没有可处理的行", e.Stage)
}

// UnsupportedFormatError 全部识别器得分低于置信度下限
type UnsupportedFormatError struct {
	BestFormat FormatType
	BestScore  float64
	Floor      float64
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("无法识别单据格式: 最高得分 %.2f (%s) 低于下限 %.2f",
		e.BestScore, e.BestFormat, e.Floor)
}

// MissingJoinKeyError 补全时无法在某一侧解析关联键
type MissingJoinKeyError struct {
	Side       string   // detail / header
	Candidates []string // 扫描过的候选列
}

func (e *MissingJoinKeyError) Error() string {
	return fmt.Sprintf("缺少关联键: %s 侧未找到可用的关联字段（已尝试 %d 个候选列），可显式指定关联键后重试",
		e.Side, len(e.Candidates))
}

// InvalidMatchConfigError 匹配配置校验失败（在任何匹配工作开始前拒绝）
type InvalidMatchConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidMatchConfigError) Error() string {
	return fmt.Sprintf("匹配配置无效: %s %s", e.Field, e.Reason)
}
