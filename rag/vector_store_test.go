package rag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/ragcore/types"
)

func TestStoreBuilder_Add(t *testing.T) {
	builder := NewStoreBuilder(nil)

	id, err := builder.Add([]float64{1, 0, 0}, Segment{Text: "first"})
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = builder.Add([]float64{0, 1, 0}, Segment{Text: "second"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestStoreBuilder_DimensionMismatch(t *testing.T) {
	builder := NewStoreBuilder(nil)

	_, err := builder.Add([]float64{1, 0, 0}, Segment{Text: "first"})
	require.NoError(t, err)

	_, err = builder.Add([]float64{1, 0}, Segment{Text: "wrong dim"})
	require.Error(t, err)
	assert.Equal(t, types.ErrDimensionMismatch, types.GetErrorCode(err))

	_, err = builder.Add(nil, Segment{Text: "empty"})
	require.Error(t, err)
	assert.Equal(t, types.ErrDimensionMismatch, types.GetErrorCode(err))

	// 被拒绝的向量不进入存储
	store := builder.Freeze()
	assert.Equal(t, 1, store.Len())
}

func TestStoreBuilder_FrozenRejectsAdd(t *testing.T) {
	builder := NewStoreBuilder(nil)
	_, err := builder.Add([]float64{1, 0}, Segment{Text: "first"})
	require.NoError(t, err)

	builder.Freeze()

	_, err = builder.Add([]float64{0, 1}, Segment{Text: "late"})
	require.Error(t, err)
	assert.Equal(t, types.ErrStoreFrozen, types.GetErrorCode(err))
}

func TestStoreBuilder_ConcurrentAdd(t *testing.T) {
	builder := NewStoreBuilder(nil)

	const n = 64
	var wg sync.WaitGroup
	ids := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := builder.Add([]float64{float64(i), 1}, Segment{Text: fmt.Sprintf("seg-%d", i)})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	store := builder.Freeze()
	assert.Equal(t, n, store.Len())

	// id 唯一
	seen := make(map[int]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestVectorStore_QueryIdenticalVectorFirst(t *testing.T) {
	builder := NewStoreBuilder(nil)
	_, err := builder.Add([]float64{0, 1, 0}, Segment{Text: "orthogonal"})
	require.NoError(t, err)
	_, err = builder.Add([]float64{1, 0, 0}, Segment{Text: "identical"})
	require.NoError(t, err)
	store := builder.Freeze()

	results, err := store.Query([]float64{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "identical", results[0].Segment.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9) // 正交向量: (1+0)/2
}

func TestVectorStore_QueryTopK(t *testing.T) {
	builder := NewStoreBuilder(nil)
	for i := 0; i < 5; i++ {
		_, err := builder.Add([]float64{1, float64(i)}, Segment{Text: fmt.Sprintf("seg-%d", i)})
		require.NoError(t, err)
	}
	store := builder.Freeze()

	results, err := store.Query([]float64{1, 0}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// 降序
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestVectorStore_QueryMinScore(t *testing.T) {
	builder := NewStoreBuilder(nil)
	_, err := builder.Add([]float64{1, 0}, Segment{Text: "close"})
	require.NoError(t, err)
	_, err = builder.Add([]float64{-1, 0}, Segment{Text: "opposite"}) // 相关度 0
	require.NoError(t, err)
	store := builder.Freeze()

	results, err := store.Query([]float64{1, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "close", results[0].Segment.Text)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.5)
	}
}

func TestVectorStore_QueryInsertionOrderTieBreak(t *testing.T) {
	builder := NewStoreBuilder(nil)
	_, err := builder.Add([]float64{1, 1}, Segment{Text: "added first"})
	require.NoError(t, err)
	_, err = builder.Add([]float64{2, 2}, Segment{Text: "added second"}) // 同方向，余弦相同
	require.NoError(t, err)
	store := builder.Freeze()

	results, err := store.Query([]float64{1, 1}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "added first", results[0].Segment.Text)
	assert.Equal(t, "added second", results[1].Segment.Text)
}

func TestVectorStore_QueryDimensionMismatch(t *testing.T) {
	builder := NewStoreBuilder(nil)
	_, err := builder.Add([]float64{1, 0, 0}, Segment{Text: "seg"})
	require.NoError(t, err)
	store := builder.Freeze()

	_, err = store.Query([]float64{1, 0}, 10, 0)
	require.Error(t, err)
	assert.Equal(t, types.ErrDimensionMismatch, types.GetErrorCode(err))
}

func TestVectorStore_QueryEmptyStore(t *testing.T) {
	store := NewStoreBuilder(nil).Freeze()

	results, err := store.Query([]float64{1, 0}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, store.Dimension())
}

func TestVectorStore_QueryZeroK(t *testing.T) {
	builder := NewStoreBuilder(nil)
	_, err := builder.Add([]float64{1, 0}, Segment{Text: "seg"})
	require.NoError(t, err)
	store := builder.Freeze()

	results, err := store.Query([]float64{1, 0}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// ====== 功用函数 ======

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0.0},
		{"length mismatch", []float64{1, 0}, []float64{1}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRelevanceScore(t *testing.T) {
	assert.InDelta(t, 1.0, relevanceScore(1), 1e-9)
	assert.InDelta(t, 0.5, relevanceScore(0), 1e-9)
	assert.InDelta(t, 0.0, relevanceScore(-1), 1e-9)
	assert.Equal(t, 1.0, relevanceScore(1.0000001)) // 浮点毛刺被钳制
	assert.Equal(t, 0.0, relevanceScore(-1.0000001))
}
