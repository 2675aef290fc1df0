package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Detector   DetectorConfig   `toml:"detector"`
	Quality    QualityConfig    `toml:"quality"`
	Routing    RoutingConfig    `toml:"routing"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Supplement SupplementConfig `toml:"supplement"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// DetectorConfig 格式识别配置
type DetectorConfig struct {
	ConfidenceFloor   float64 `toml:"confidence_floor"`
	TieBreakEpsilon   float64 `toml:"tie_break_epsilon"`
	SummaryRowLimit   int     `toml:"summary_row_limit"`
	CompletenessRatio float64 `toml:"completeness_ratio"`
}

// QualityConfig 质量评估权重配置
type QualityConfig struct {
	CompletenessWeight float64 `toml:"completeness_weight"`
	AccuracyWeight     float64 `toml:"accuracy_weight"`
	ConsistencyWeight  float64 `toml:"consistency_weight"`
}

// RoutingConfig 路由阈值配置
type RoutingConfig struct {
	FastMaxFileSize int64 `toml:"fast_max_file_size"`
	FastMaxRowCount int   `toml:"fast_max_row_count"`
}

// MatcherConfig 主数据匹配配置
type MatcherConfig struct {
	FuzzyThreshold  float64 `toml:"fuzzy_threshold"`
	AliasConfidence float64 `toml:"alias_confidence"`
}

// SupplementConfig 补全规则配置
type SupplementConfig struct {
	RulesPath string `toml:"rules_path"`
}

// PipelineConfig 流水线执行配置
type PipelineConfig struct {
	FastTimeoutSeconds int    `toml:"fast_timeout_seconds"`
	PendingTTLHours    int    `toml:"pending_ttl_hours"`
	PendingSweepCron   string `toml:"pending_sweep_cron"`
	MaxConcurrentHeavy int    `toml:"max_concurrent_heavy"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20371,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Detector: DetectorConfig{
			ConfidenceFloor:   0.3,
			TieBreakEpsilon:   0.01,
			SummaryRowLimit:   100,
			CompletenessRatio: 0.8,
		},
		Quality: QualityConfig{
			CompletenessWeight: 0.5,
			AccuracyWeight:     0.3,
			ConsistencyWeight:  0.2,
		},
		Routing: RoutingConfig{
			FastMaxFileSize: 1 << 20,
			FastMaxRowCount: 10000,
		},
		Matcher: MatcherConfig{
			FuzzyThreshold:  0.8,
			AliasConfidence: 0.95,
		},
		Supplement: SupplementConfig{
			RulesPath: "",
		},
		Pipeline: PipelineConfig{
			FastTimeoutSeconds: 10,
			PendingTTLHours:    72,
			PendingSweepCron:   "0 * * * *",
			MaxConcurrentHeavy: 4,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("SMARTDOC_RULES_PATH"); v != "" {
		config.Supplement.RulesPath = v
	}

	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "files"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
