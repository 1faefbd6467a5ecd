package rag

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter 统计文本的 token 数，供证据预算使用。
type TokenCounter interface {
	CountTokens(text string) int
}

// EstimateCounter 按 ~4 字符/token 估算，无需外部编码数据。
type EstimateCounter struct{}

func (EstimateCounter) CountTokens(text string) int {
	return len(text) / 4
}

// TiktokenCounter 基于 tiktoken 编码的精确计数器。
type TiktokenCounter struct {
	enc    *tiktoken.Tiktoken
	logger *zap.Logger
}

// NewTiktokenCounter 创建 tiktoken 计数器。
// encoding 为空时使用 cl100k_base。
func NewTiktokenCounter(encoding string, logger *zap.Logger) (*TiktokenCounter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc, logger: logger}, nil
}

// CountTokens 返回文本的 token 数。
func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
