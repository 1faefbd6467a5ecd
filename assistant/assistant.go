package assistant

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcore/llm"
	"github.com/BaSui01/ragcore/memory"
	"github.com/BaSui01/ragcore/rag"
	"github.com/BaSui01/ragcore/types"
)

// Config Assistant 配置
type Config struct {
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Assistant 顶层门面。一个 Assistant 独占一个会话记忆；
// 同一会话的 Chat 调用严格顺序执行（检索与生成完成后才开始下一轮）。
type Assistant struct {
	config    Config
	provider  llm.Provider
	augmentor *rag.Augmentor
	memory    *memory.WindowMemory
	logger    *zap.Logger
}

// New 创建 Assistant。
func New(config Config, provider llm.Provider, augmentor *rag.Augmentor, mem *memory.WindowMemory, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		config:    config,
		provider:  provider,
		augmentor: augmentor,
		memory:    mem,
		logger:    logger.With(zap.String("component", "assistant")),
	}
}

// ConversationID 返回所属会话的标识符。
func (a *Assistant) ConversationID() string { return a.memory.ID() }

// Chat 处理一轮用户提问：构建查询、检索增强、调用生成 API、
// 提交双方轮次并返回回答文本。
// 生成失败向调用方透出（本核心不做静默重试），失败的轮次不进入记忆。
func (a *Assistant) Chat(ctx context.Context, userMessage string) (string, error) {
	q := rag.Query{
		Text:           userMessage,
		ConversationID: a.memory.ID(),
	}

	request := a.augmentor.Augment(ctx, q, a.memory.Snapshot())

	resp, err := a.provider.Generate(ctx, &llm.GenerateRequest{
		Model:       a.config.Model,
		Messages:    request.Messages(),
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	})
	if err != nil {
		a.logger.Error("generation failed",
			zap.String("conversation_id", a.memory.ID()),
			zap.Error(err))
		if types.GetErrorCode(err) != "" {
			return "", err
		}
		return "", types.NewError(types.ErrGenerationFailure, "generate answer").WithCause(err)
	}

	a.memory.Append(types.NewUserMessage(userMessage))
	a.memory.Append(types.NewAssistantMessage(resp.Text))

	a.logger.Info("chat turn completed",
		zap.String("conversation_id", a.memory.ID()),
		zap.Int("evidence_contents", len(request.Contents)),
		zap.Int("history_turns", len(request.History)))

	return resp.Text, nil
}
