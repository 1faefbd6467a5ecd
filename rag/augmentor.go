package rag

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcore/types"
)

// evidenceHeader 证据块引导语，与用户问题一起进入生成请求。
const evidenceHeader = "Answer using the following information:"

// AugmentedRequest 交给生成 API 的完整载荷：
// 查询文本、选中的证据内容与会话历史快照。
type AugmentedRequest struct {
	Query    Query           `json:"query"`
	Contents []Content       `json:"contents"`
	History  []types.Message `json:"history"`
}

// Messages 将请求渲染为消息序列：证据 system 块（可为空）、历史、用户问题。
func (r *AugmentedRequest) Messages() []types.Message {
	msgs := make([]types.Message, 0, len(r.History)+2)

	if block := r.EvidenceBlock(); block != "" {
		msgs = append(msgs, types.NewSystemMessage(block))
	}
	msgs = append(msgs, r.History...)
	msgs = append(msgs, types.NewUserMessage(r.Query.Text))
	return msgs
}

// EvidenceBlock 将内容拼接为单个证据块。无内容时返回空串（无检索直通）。
func (r *AugmentedRequest) EvidenceBlock() string {
	if len(r.Contents) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(evidenceHeader)
	for _, c := range r.Contents {
		sb.WriteString("\n\n")
		sb.WriteString(c.Segment.Text)
	}
	return sb.String()
}

// AugmentorConfig 证据合并配置
type AugmentorConfig struct {
	// 证据块 token 预算；<=0 表示不限
	MaxEvidenceTokens int `json:"max_evidence_tokens" yaml:"max_evidence_tokens"`
	// 多检索器并发取回
	ParallelRetrieval bool `json:"parallel_retrieval" yaml:"parallel_retrieval"`
}

// DefaultAugmentorConfig 返回默认配置。
func DefaultAugmentorConfig() AugmentorConfig {
	return AugmentorConfig{
		MaxEvidenceTokens: 2000,
		ParallelRetrieval: true,
	}
}

// Augmentor 检索增强器：路由 → 取回 → 合并 → 注入。
// 不拥有路由器与检索器，只持有装配时配置的共享引用；
// Augment 是纯变换，不修改会话记忆——提交轮次由调用方负责。
type Augmentor struct {
	config     AugmentorConfig
	router     *Router
	retrievers map[RetrieverID]*Retriever
	counter    TokenCounter
	logger     *zap.Logger
}

// NewAugmentor 创建检索增强器。counter 为 nil 时使用字符估算。
func NewAugmentor(config AugmentorConfig, router *Router, retrievers []*Retriever, counter TokenCounter, logger *zap.Logger) *Augmentor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if counter == nil {
		counter = EstimateCounter{}
	}

	byID := make(map[RetrieverID]*Retriever, len(retrievers))
	for _, r := range retrievers {
		byID[r.ID()] = r
	}

	return &Augmentor{
		config:     config,
		router:     router,
		retrievers: byID,
		counter:    counter,
		logger:     logger.With(zap.String("component", "augmentor")),
	}
}

// Augment 为查询构建增强请求。
// 路由决定为空时产出无证据的直通请求；单个检索器失败只损失
// 其自身的贡献，不中止整体合并。
func (a *Augmentor) Augment(ctx context.Context, q Query, history []types.Message) *AugmentedRequest {
	decision := a.router.Route(ctx, q)

	contents := a.retrieveAll(ctx, q, decision)
	contents = dedupeByText(contents)
	contents = a.applyTokenBudget(contents)

	a.logger.Debug("augmentation completed",
		zap.String("query", truncate(q.Text, 80)),
		zap.Int("routed_retrievers", len(decision)),
		zap.Int("contents", len(contents)))

	snapshot := make([]types.Message, len(history))
	copy(snapshot, history)

	return &AugmentedRequest{
		Query:    q,
		Contents: contents,
		History:  snapshot,
	}
}

// retrieveAll 按决定顺序取回内容，保持检索器内部排序，
// 不做跨来源重排（来源间的分数尺度不可比，这是刻意的简化）。
func (a *Augmentor) retrieveAll(ctx context.Context, q Query, decision Decision) []Content {
	if len(decision) == 0 {
		return nil
	}

	perRetriever := make([][]Content, len(decision))

	fetch := func(slot int, id RetrieverID) {
		retriever, ok := a.retrievers[id]
		if !ok {
			a.logger.Warn("router selected unknown retriever, skipping",
				zap.String("retriever", string(id)))
			return
		}

		results, err := retriever.Retrieve(ctx, q.Text)
		if err != nil {
			// 单检索器失败降级为空贡献
			a.logger.Warn("retriever failed, contributing empty result set",
				zap.String("retriever", string(id)),
				zap.String("code", string(types.ErrRetrieverFailure)),
				zap.Error(err))
			return
		}
		perRetriever[slot] = results
	}

	if a.config.ParallelRetrieval && len(decision) > 1 {
		// 选中的检索器不共享可变状态，可并发取回
		var wg sync.WaitGroup
		for i, id := range decision {
			wg.Add(1)
			go func(slot int, rid RetrieverID) {
				defer wg.Done()
				fetch(slot, rid)
			}(i, id)
		}
		wg.Wait()
	} else {
		for i, id := range decision {
			fetch(i, id)
		}
	}

	var merged []Content
	for _, results := range perRetriever {
		merged = append(merged, results...)
	}
	return merged
}

// dedupeByText 去除来自多个检索器的重复片段文本，首现者保留。
func dedupeByText(contents []Content) []Content {
	if len(contents) <= 1 {
		return contents
	}

	seen := make(map[string]bool, len(contents))
	deduped := contents[:0]
	for _, c := range contents {
		if seen[c.Segment.Text] {
			continue
		}
		seen[c.Segment.Text] = true
		deduped = append(deduped, c)
	}
	return deduped
}

// applyTokenBudget 在超出证据预算处截断内容序列。
func (a *Augmentor) applyTokenBudget(contents []Content) []Content {
	if a.config.MaxEvidenceTokens <= 0 {
		return contents
	}

	total := 0
	for i, c := range contents {
		total += a.counter.CountTokens(c.Segment.Text)
		if total > a.config.MaxEvidenceTokens {
			a.logger.Debug("evidence token budget reached",
				zap.Int("kept", i),
				zap.Int("dropped", len(contents)-i),
				zap.Int("budget", a.config.MaxEvidenceTokens))
			return contents[:i]
		}
	}
	return contents
}
