package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoggingProvider 在每次生成调用前后记录请求与响应。
// 替代全局日志开关：作为显式注入的包装器，而非环境状态。
type LoggingProvider struct {
	inner  Provider
	logger *zap.Logger
}

// NewLoggingProvider 包装一个 Provider，记录其请求/响应。
func NewLoggingProvider(inner Provider, logger *zap.Logger) *LoggingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{
		inner:  inner,
		logger: logger.With(zap.String("component", "llm_logging")),
	}
}

// Name 返回被包装 Provider 的名称。
func (p *LoggingProvider) Name() string { return p.inner.Name() }

// Generate 记录请求、转发调用并记录响应或错误。
func (p *LoggingProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	p.logger.Info("llm request",
		zap.String("provider", p.inner.Name()),
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)))

	for i, msg := range req.Messages {
		p.logger.Debug("llm request message",
			zap.Int("index", i),
			zap.String("role", string(msg.Role)),
			zap.String("content", msg.Content))
	}

	resp, err := p.inner.Generate(ctx, req)
	if err != nil {
		p.logger.Error("llm request failed",
			zap.String("provider", p.inner.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	p.logger.Info("llm response",
		zap.String("provider", p.inner.Name()),
		zap.String("model", resp.Model),
		zap.Int("response_chars", len(resp.Text)),
		zap.Duration("duration", time.Since(start)))
	p.logger.Debug("llm response text", zap.String("text", resp.Text))

	return resp, nil
}
