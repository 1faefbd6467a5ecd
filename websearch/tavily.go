package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/ragcore/rag"
)

// TavilyConfig Tavily 搜索配置
type TavilyConfig struct {
	APIKey      string        `json:"api_key" yaml:"api_key"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	SearchDepth string        `json:"search_depth" yaml:"search_depth"` // "basic" or "advanced"
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	// 客户端限流：每分钟最大请求数（0 表示不限）
	RatePerMinute int `json:"rate_per_minute" yaml:"rate_per_minute"`
}

// DefaultTavilyConfig 返回默认配置。
func DefaultTavilyConfig() TavilyConfig {
	return TavilyConfig{
		BaseURL:       "https://api.tavily.com",
		SearchDepth:   "basic",
		Timeout:       15 * time.Second,
		RatePerMinute: 30,
	}
}

// TavilyClient Tavily 搜索引擎客户端，实现 rag.WebSearchEngine。
type TavilyClient struct {
	cfg     TavilyConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ rag.WebSearchEngine = (*TavilyClient)(nil)

// NewTavilyClient 创建 Tavily 客户端。
func NewTavilyClient(cfg TavilyConfig, logger *zap.Logger) *TavilyClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}

	return &TavilyClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger.With(zap.String("component", "tavily")),
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search 对 Tavily 发起一次搜索，结果按引擎返回顺序包装。
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]rag.WebSearchResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tavily rate limit wait: %w", err)
		}
	}

	start := time.Now()

	body := tavilyRequest{
		APIKey:      c.cfg.APIKey,
		Query:       query,
		SearchDepth: c.cfg.SearchDepth,
		MaxResults:  maxResults,
	}
	payload, _ := json.Marshal(body)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search"
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tavily search: status=%d msg=%s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tavilyResp tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tavilyResp); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results := make([]rag.WebSearchResult, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		results = append(results, rag.WebSearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}

	c.logger.Info("web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}
