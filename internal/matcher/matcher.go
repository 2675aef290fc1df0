package matcher

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"smartdoc/internal/model"
)

// MatcherConfig 匹配阈值配置
type MatcherConfig struct {
	FuzzyThreshold  float64 // 模糊匹配接受下限
	AliasConfidence float64 // 别名命中的固定置信度
}

// DefaultMatcherConfig 默认匹配配置
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		FuzzyThreshold:  0.8,
		AliasConfidence: 0.95,
	}
}

// Matcher 主数据匹配器：对目录快照只读，批量匹配确定且幂等
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher 创建匹配器
func NewMatcher(cfg MatcherConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// ValidateConfig 在任何匹配工作开始前校验请求配置
func ValidateConfig(cfg model.MatchConfig) error {
	if strings.TrimSpace(cfg.EntityType) == "" {
		return &model.InvalidMatchConfigError{Field: "entityType", Reason: "不能为空"}
	}
	if len(cfg.MatchFields) == 0 {
		return &model.InvalidMatchConfigError{Field: "matchFields", Reason: "至少指定一个匹配字段"}
	}
	for _, f := range cfg.MatchFields {
		if f != "name" && f != "alias" {
			return &model.InvalidMatchConfigError{Field: "matchFields", Reason: "仅支持 name / alias"}
		}
	}
	return nil
}

// MatchBatch 依输入顺序逐个匹配去重后的源值
// exact → alias → fuzzy → none，目录快照不变则结果不变
func (m *Matcher) MatchBatch(values []string, cfg model.MatchConfig, catalog []model.CatalogEntity) ([]model.MatchCandidate, model.MatchStatistics, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, model.MatchStatistics{}, err
	}

	// 快照内按更新时间降序，模糊匹配平分时取最近更新者
	snapshot := make([]model.CatalogEntity, len(catalog))
	copy(snapshot, catalog)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].UpdatedAt.After(snapshot[j].UpdatedAt)
	})

	useAlias := false
	for _, f := range cfg.MatchFields {
		if f == "alias" {
			useAlias = true
		}
	}

	results := make([]model.MatchCandidate, 0, len(values))
	stats := model.MatchStatistics{Total: len(values)}

	for _, value := range values {
		candidate := m.matchOne(value, snapshot, useAlias)
		if candidate.MatchType != model.MatchNone {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
		results = append(results, candidate)
	}

	if stats.Total > 0 {
		stats.MatchRate = float64(stats.Matched) / float64(stats.Total)
	}
	return results, stats, nil
}

func (m *Matcher) matchOne(value string, snapshot []model.CatalogEntity, useAlias bool) model.MatchCandidate {
	out := model.MatchCandidate{SourceValue: value, MatchType: model.MatchNone}

	norm := normalize(value)
	if norm == "" {
		return out
	}

	// 1. 主字段精确匹配（大小写不敏感）
	for _, entity := range snapshot {
		if normalize(entity.Name) == norm {
			out.MatchedEntityID = entity.ID
			out.MatchedName = entity.Name
			out.Confidence = 1.0
			out.MatchType = model.MatchExact
			return out
		}
	}

	// 2. 别名精确匹配
	if useAlias {
		for _, entity := range snapshot {
			for _, alias := range entity.Aliases {
				if normalize(alias) == norm {
					out.MatchedEntityID = entity.ID
					out.MatchedName = entity.Name
					out.Confidence = m.cfg.AliasConfidence
					out.MatchType = model.MatchAlias
					return out
				}
			}
		}
	}

	// 3. 主字段模糊匹配，得分需达到下限；快照已按更新时间排序，平分取首个
	bestScore := 0.0
	var bestEntity *model.CatalogEntity
	for i := range snapshot {
		score := similarity(norm, normalize(snapshot[i].Name))
		if score > bestScore {
			bestScore = score
			bestEntity = &snapshot[i]
		}
	}
	if bestEntity != nil && bestScore >= m.cfg.FuzzyThreshold {
		out.MatchedEntityID = bestEntity.ID
		out.MatchedName = bestEntity.Name
		out.Confidence = bestScore
		out.MatchType = model.MatchFuzzy
	}
	return out
}

// similarity 归一化编辑距离相似度 0-1
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UniqueValues 提取指定抽取序列中的去重源值，保持首次出现顺序
func UniqueValues(records []*model.CanonicalRecord, pick func(*model.CanonicalRecord) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range records {
		v := strings.TrimSpace(pick(r))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
