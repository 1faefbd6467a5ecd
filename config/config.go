package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/ragcore/assistant"
	"github.com/BaSui01/ragcore/llm"
	"github.com/BaSui01/ragcore/rag"
	"github.com/BaSui01/ragcore/websearch"
)

// Config ragcore 的完整配置结构
type Config struct {
	// Gemini 生成与嵌入配置
	Gemini llm.GeminiConfig `yaml:"gemini"`

	// Tavily 网络搜索配置
	Tavily websearch.TavilyConfig `yaml:"tavily"`

	// Chunking 分块配置
	Chunking rag.SplitterConfig `yaml:"chunking"`

	// Retrieval 检索配置
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Augmentor 证据合并配置
	Augmentor rag.AugmentorConfig `yaml:"augmentor"`

	// Memory 会话记忆配置
	Memory MemoryConfig `yaml:"memory"`

	// Router 查询路由配置
	Router RouterConfig `yaml:"router"`

	// Assistant 门面配置
	Assistant assistant.Config `yaml:"assistant"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// 每个向量检索器返回的最大结果数
	TopK int `yaml:"top_k"`
	// 向量检索的最小相关度阈值
	MinScore float64 `yaml:"min_score"`
	// 网络检索器返回的最大结果数
	MaxWebResults int `yaml:"max_web_results"`
}

// MemoryConfig 会话记忆配置
type MemoryConfig struct {
	// 滑动窗口容量（轮次数）
	Window int `yaml:"window"`
}

// RouterConfig 查询路由配置
type RouterConfig struct {
	// 路由器变体: fixed / classifier / gate / union
	Kind rag.RouterKind `yaml:"kind"`
	// fixed 变体的检索器 id；gate 变体的被包裹检索器 id
	Retriever rag.RetrieverID `yaml:"retriever,omitempty"`
	// classifier 变体的来源描述
	Sources []rag.SourceDescription `yaml:"sources,omitempty"`
	// gate 变体的主题
	GateTopic string `yaml:"gate_topic,omitempty"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug / info / warn / error
	Level string `yaml:"level"`
	// 开发模式（console 编码、彩色级别）
	Development bool `yaml:"development"`
}

// Default 返回默认配置（沿用原始系统的取值）。
func Default() Config {
	return Config{
		Gemini:    llm.DefaultGeminiConfig(),
		Tavily:    websearch.DefaultTavilyConfig(),
		Chunking:  rag.DefaultSplitterConfig(),
		Retrieval: RetrievalConfig{TopK: 2, MinScore: 0.5, MaxWebResults: 5},
		Augmentor: rag.DefaultAugmentorConfig(),
		Memory:    MemoryConfig{Window: 10},
		Router:    RouterConfig{Kind: rag.RouterFixed},
		Assistant: assistant.Config{Temperature: 0.7},
		Log:       LogConfig{Level: "info"},
	}
}

// Load 从 YAML 文件加载配置，再用环境变量覆盖 API 密钥。
// path 为空时只应用默认值与环境变量。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides 用环境变量覆盖 API 密钥。
func applyEnvOverrides(cfg *Config) {
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI"} {
		if v := os.Getenv(key); v != "" {
			cfg.Gemini.APIKey = v
			break
		}
	}
	for _, key := range []string{"TAVILY_API_KEY", "TAVILY"} {
		if v := os.Getenv(key); v != "" {
			cfg.Tavily.APIKey = v
			break
		}
	}
}

// NewLogger 按日志配置构建 zap.Logger。
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = level
	}

	return zapCfg.Build()
}
