package routing

import (
	"fmt"
	"strings"

	"smartdoc/internal/model"
)

// Thresholds 快速通道准入阈值
type Thresholds struct {
	MaxFileSizeBytes int64 // 默认 1 MiB
	MaxRowCount      int   // 默认 10000
}

// DefaultThresholds 默认路由阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFileSizeBytes: 1 << 20,
		MaxRowCount:      10000,
	}
}

// fastFormats 允许走快速通道的文件格式
var fastFormats = map[string]bool{
	"csv":  true,
	"json": true,
}

// Engine 路由决策引擎：纯函数，无 I/O、无随机性
type Engine struct {
	thresholds Thresholds
}

// NewEngine 创建路由引擎
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Decide 判定执行通道
// 满足全部快速条件走 FAST，任一不满足即 HEAVY，并给出触发原因
func (e *Engine) Decide(signals model.RoutingSignals) model.RoutingDecision {
	reasons := []string{}

	format := strings.ToLower(strings.TrimSpace(signals.FileFormat))
	if !fastFormats[format] {
		reasons = append(reasons, fmt.Sprintf("文件格式 %s 不在快速通道白名单", format))
	}
	if signals.FileSizeBytes >= e.thresholds.MaxFileSizeBytes {
		reasons = append(reasons, fmt.Sprintf("文件大小 %d 字节达到上限 %d", signals.FileSizeBytes, e.thresholds.MaxFileSizeBytes))
	}
	if signals.EstimatedRowCount >= e.thresholds.MaxRowCount {
		reasons = append(reasons, fmt.Sprintf("预估行数 %d 达到上限 %d", signals.EstimatedRowCount, e.thresholds.MaxRowCount))
	}
	if signals.NeedsComplexMapping {
		reasons = append(reasons, "需要复杂字段映射")
	}
	if signals.NeedsComplexETL {
		reasons = append(reasons, "需要复杂 ETL 处理")
	}
	if signals.NeedsDeepQualityCheck {
		reasons = append(reasons, "需要深度质量检查")
	}

	if len(reasons) == 0 {
		return model.RoutingDecision{Path: model.PathFast, TriggeredReasons: []string{}}
	}
	return model.RoutingDecision{Path: model.PathHeavy, TriggeredReasons: reasons}
}
