package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RetrieverID 检索器标识符
type RetrieverID string

// RetrieverKind 检索器变体。封闭集合，通过显式 switch 分派。
type RetrieverKind string

const (
	RetrieverVector RetrieverKind = "vector" // 向量存储 + 嵌入函数
	RetrieverWeb    RetrieverKind = "web"    // 外部搜索引擎
)

// Content 一条检索结果。创建后不再变更。
type Content struct {
	Segment Segment     `json:"segment"`
	Score   float64     `json:"score,omitempty"`  // 相关度 [0,1]；引擎未提供时为 0
	Origin  RetrieverID `json:"origin,omitempty"` // 产出该结果的检索器
}

// Embedder 嵌入函数协作者。输出维度对给定实现固定。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// WebSearchResult 外部搜索引擎返回的单条结果。
type WebSearchResult struct {
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// WebSearchEngine 外部搜索引擎协作者。
// 该接口让检索器与具体搜索实现脱钩。
type WebSearchEngine interface {
	Search(ctx context.Context, query string, maxResults int) ([]WebSearchResult, error)
}

// Retriever 内容检索器。变体集合封闭（vector / web），
// Retrieve 对相同的存储/引擎状态与查询是确定的，且从不修改 VectorStore。
type Retriever struct {
	id   RetrieverID
	kind RetrieverKind

	// vector 变体
	store    *VectorStore
	embedder Embedder
	topK     int
	minScore float64

	// web 变体
	engine     WebSearchEngine
	maxResults int

	logger *zap.Logger
}

// NewVectorRetriever 创建基于向量存储的检索器。
func NewVectorRetriever(id RetrieverID, store *VectorStore, embedder Embedder, topK int, minScore float64, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		id:       id,
		kind:     RetrieverVector,
		store:    store,
		embedder: embedder,
		topK:     topK,
		minScore: minScore,
		logger:   logger.With(zap.String("retriever", string(id))),
	}
}

// NewWebRetriever 创建基于外部搜索引擎的检索器。
func NewWebRetriever(id RetrieverID, engine WebSearchEngine, maxResults int, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		id:         id,
		kind:       RetrieverWeb,
		engine:     engine,
		maxResults: maxResults,
		logger:     logger.With(zap.String("retriever", string(id))),
	}
}

// ID 返回检索器标识符。
func (r *Retriever) ID() RetrieverID { return r.id }

// Kind 返回检索器变体。
func (r *Retriever) Kind() RetrieverKind { return r.kind }

// Retrieve 为查询文本取回内容序列。
func (r *Retriever) Retrieve(ctx context.Context, queryText string) ([]Content, error) {
	switch r.kind {
	case RetrieverVector:
		return r.retrieveVector(ctx, queryText)
	case RetrieverWeb:
		return r.retrieveWeb(ctx, queryText)
	default:
		return nil, fmt.Errorf("unknown retriever kind %q", r.kind)
	}
}

func (r *Retriever) retrieveVector(ctx context.Context, queryText string) ([]Content, error) {
	vector, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	contents, err := r.store.Query(vector, r.topK, r.minScore)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}

	for i := range contents {
		contents[i].Origin = r.id
	}

	r.logger.Debug("vector retrieval completed",
		zap.Int("results", len(contents)),
		zap.Int("top_k", r.topK),
		zap.Float64("min_score", r.minScore))

	return contents, nil
}

func (r *Retriever) retrieveWeb(ctx context.Context, queryText string) ([]Content, error) {
	results, err := r.engine.Search(ctx, queryText, r.maxResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	contents := make([]Content, 0, len(results))
	for i, res := range results {
		contents = append(contents, Content{
			Segment: Segment{
				Text:     res.Snippet,
				SourceID: res.URL,
				Ordinal:  i,
			},
			Score:  res.Score, // 引擎提供置信度时透传
			Origin: r.id,
		})
	}

	r.logger.Debug("web retrieval completed", zap.Int("results", len(contents)))

	return contents, nil
}
