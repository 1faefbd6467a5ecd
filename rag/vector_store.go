package rag

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcore/types"
)

// indexedEntry 向量存储内部条目：(id, vector, segment)。
type indexedEntry struct {
	id      int
	vector  []float64
	segment Segment
}

// StoreBuilder 向量存储的构建阶段。
// Add 可并发调用（id 分配原子）；Freeze 之后不再接受写入。
// 存储维度由首个向量固定，后续不一致的向量被拒绝。
type StoreBuilder struct {
	mu      sync.Mutex
	dim     int
	entries []indexedEntry
	frozen  bool
	logger  *zap.Logger
}

// NewStoreBuilder 创建向量存储构建器。
func NewStoreBuilder(logger *zap.Logger) *StoreBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreBuilder{
		logger: logger.With(zap.String("component", "vector_store")),
	}
}

// Add 追加 (vector, segment) 条目，返回存储内唯一且稳定的 id。
// 向量长度与已确立的维度不符时返回 DIMENSION_MISMATCH，存储不受影响。
func (b *StoreBuilder) Add(vector []float64, segment Segment) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return 0, types.NewError(types.ErrStoreFrozen, "store is frozen, no further adds")
	}
	if len(vector) == 0 {
		return 0, types.NewError(types.ErrDimensionMismatch, "empty vector")
	}

	if b.dim == 0 {
		b.dim = len(vector)
	} else if len(vector) != b.dim {
		return 0, types.NewErrorf(types.ErrDimensionMismatch,
			"vector dimension %d does not match store dimension %d", len(vector), b.dim)
	}

	id := len(b.entries)
	b.entries = append(b.entries, indexedEntry{id: id, vector: vector, segment: segment})
	return id, nil
}

// Freeze 结束构建阶段，返回只读的 VectorStore。
// 之后对构建器的 Add 调用失败；查询只能发生在冻结之后。
func (b *StoreBuilder) Freeze() *VectorStore {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frozen = true
	b.logger.Info("vector store frozen",
		zap.Int("entries", len(b.entries)),
		zap.Int("dimension", b.dim))

	return &VectorStore{
		dim:     b.dim,
		entries: b.entries,
		logger:  b.logger,
	}
}

// VectorStore 冻结后的只读向量存储。
// 条目在存储生命周期内不增不删；Query 是纯读操作。
type VectorStore struct {
	dim     int
	entries []indexedEntry
	logger  *zap.Logger
}

// Dimension 返回存储的向量维度（空存储为 0）。
func (s *VectorStore) Dimension() int { return s.dim }

// Len 返回条目数。
func (s *VectorStore) Len() int { return len(s.entries) }

// Query 返回与查询向量最相似的至多 k 个条目，按相关度降序。
// 相关度为 (1+cosine)/2，单调映射到 [0,1]；低于 minScore 的条目被排除；
// 平分按插入序决出，先加入者靠前。
func (s *VectorStore) Query(vector []float64, k int, minScore float64) ([]Content, error) {
	if len(s.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, types.NewErrorf(types.ErrDimensionMismatch,
			"query vector dimension %d does not match store dimension %d", len(vector), s.dim)
	}

	matches := make([]Content, 0, len(s.entries))
	for _, entry := range s.entries {
		score := relevanceScore(cosineSimilarity(vector, entry.vector))
		if score < minScore {
			continue
		}
		matches = append(matches, Content{
			Segment: entry.segment,
			Score:   score,
		})
	}

	// 稳定排序保持插入序平分规则
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// ====== 功用函数 ======

// cosineSimilarity 计算两个向量的余弦相似度，范围 [-1, 1]。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// relevanceScore 将余弦相似度映射到 [0, 1]：(1 + cos) / 2。
// 相同向量得 1.0。
func relevanceScore(cosine float64) float64 {
	score := (1 + cosine) / 2
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
