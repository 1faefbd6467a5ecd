package llm

import (
	"context"
	"time"

	"github.com/BaSui01/ragcore/types"
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Model       string          `json:"model,omitempty"`
	Messages    []types.Message `json:"messages"`
	Temperature float32         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Provider 是文本生成的统一接口。
// 调用是单次同步请求；重试/退避策略属于实现方，不属于检索核心。
type Provider interface {
	// Name 返回 Provider 名称。
	Name() string

	// Generate 根据消息序列生成回答文本。
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// EmbeddingProvider 是文本嵌入的统一接口。
// 输出向量维度对给定模型固定；EmbedAll 保持输入顺序。
type EmbeddingProvider interface {
	// Embed 将单段文本映射为固定维度向量。
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedAll 批量嵌入，返回与输入平行的向量序列。
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// Complete 以单条 user 消息调用 Provider，返回纯文本。
// 路由器的分类/门控调用使用该辅助函数。
func Complete(ctx context.Context, p Provider, prompt string) (string, error) {
	resp, err := p.Generate(ctx, &GenerateRequest{
		Messages: []types.Message{types.NewUserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
