package model

// RoutingPath 执行通道
type RoutingPath string

const (
	PathFast  RoutingPath = "fast"
	PathHeavy RoutingPath = "heavy"
)

// RoutingSignals 路由判定输入
type RoutingSignals struct {
	FileFormat            string `json:"fileFormat"` // csv/json/xlsx/xml
	FileSizeBytes         int64  `json:"fileSizeBytes"`
	EstimatedRowCount     int    `json:"estimatedRowCount"`
	NeedsComplexMapping   bool   `json:"needsComplexMapping"`
	NeedsComplexETL       bool   `json:"needsComplexEtl"`
	NeedsDeepQualityCheck bool   `json:"needsDeepQualityCheck"`
}

// RoutingDecision 路由判定结果
type RoutingDecision struct {
	Path             RoutingPath `json:"path"`
	TriggeredReasons []string    `json:"triggeredReasons"`
}
