package model

import "time"

// MatchType 匹配方式
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchAlias MatchType = "alias"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

// MatchConfig 主数据匹配配置
type MatchConfig struct {
	EntityType  string   `json:"entityType"`  // 实体类型，如 customer/product
	MatchFields []string `json:"matchFields"` // 依序尝试的匹配字段
}

// MatchCandidate 单个源值的匹配结果
type MatchCandidate struct {
	SourceValue     string    `json:"sourceValue"`
	MatchedEntityID string    `json:"matchedEntityId,omitempty"`
	MatchedName     string    `json:"matchedName,omitempty"`
	Confidence      float64   `json:"confidence"` // 0-1，exact 主字段命中时为 1.0
	MatchType       MatchType `json:"matchType"`
}

// MatchStatistics 批量匹配统计
type MatchStatistics struct {
	Total     int     `json:"total"`
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	MatchRate float64 `json:"matchRate"`
}

// CatalogEntity 主数据目录条目（只读快照成员）
type CatalogEntity struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entityType"`
	Name       string    `json:"name"`
	Aliases    []string  `json:"aliases,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
