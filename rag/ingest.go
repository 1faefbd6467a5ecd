package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ingestor 摄取管线：分块 → 批量嵌入 → 建库 → 冻结。
// 每个语料的摄取是一次性构建阶段，在任何查询之前完成。
type Ingestor struct {
	splitter *Splitter
	embedder Embedder
	logger   *zap.Logger
}

// NewIngestor 创建摄取器。
func NewIngestor(splitter *Splitter, embedder Embedder, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		splitter: splitter,
		embedder: embedder,
		logger:   logger.With(zap.String("component", "ingestor")),
	}
}

// Ingest 将单个文档摄取为冻结的向量存储。
// 空文档不是错误：产出零条目的存储。
func (in *Ingestor) Ingest(ctx context.Context, doc Document) (*VectorStore, error) {
	builder := NewStoreBuilder(in.logger)

	segments := in.splitter.Split(doc)
	if len(segments) == 0 {
		in.logger.Info("document produced no segments, store is empty",
			zap.String("source_id", doc.ID))
		return builder.Freeze(), nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	vectors, err := in.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed segments of %s: %w", doc.ID, err)
	}
	if len(vectors) != len(segments) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d segments of %s",
			len(vectors), len(segments), doc.ID)
	}

	for i, seg := range segments {
		if _, err := builder.Add(vectors[i], seg); err != nil {
			return nil, fmt.Errorf("index segment %d of %s: %w", seg.Ordinal, doc.ID, err)
		}
	}

	store := builder.Freeze()

	in.logger.Info("document ingested",
		zap.String("source_id", doc.ID),
		zap.Int("segments", store.Len()),
		zap.Int("dimension", store.Dimension()))

	return store, nil
}

// IngestAll 并行摄取多个相互独立的文档，每个文档得到自己的存储。
// 返回的存储序列与输入文档平行。
func (in *Ingestor) IngestAll(ctx context.Context, docs []Document) ([]*VectorStore, error) {
	stores := make([]*VectorStore, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			store, err := in.Ingest(gctx, doc)
			if err != nil {
				return err
			}
			stores[i] = store
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stores, nil
}
