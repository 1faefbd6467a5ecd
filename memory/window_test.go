package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/ragcore/types"
)

func TestWindowMemory_AppendAndSnapshot(t *testing.T) {
	mem := NewWindowMemory(10)
	assert.NotEmpty(t, mem.ID())
	assert.Equal(t, 10, mem.Capacity())
	assert.Equal(t, 0, mem.Len())

	mem.Append(types.NewUserMessage("hello"))
	mem.Append(types.NewAssistantMessage("hi there"))

	snapshot := mem.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, types.RoleUser, snapshot[0].Role)
	assert.Equal(t, "hello", snapshot[0].Content)
	assert.Equal(t, types.RoleAssistant, snapshot[1].Role)
}

func TestWindowMemory_EvictsOldest(t *testing.T) {
	mem := NewWindowMemory(3)
	for i := 0; i < 4; i++ {
		mem.Append(types.NewUserMessage(fmt.Sprintf("turn-%d", i)))
	}

	snapshot := mem.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "turn-1", snapshot[0].Content)
	assert.Equal(t, "turn-3", snapshot[2].Content)
}

func TestWindowMemory_MinimumCapacity(t *testing.T) {
	mem := NewWindowMemory(0)
	assert.Equal(t, 1, mem.Capacity())

	mem.Append(types.NewUserMessage("a"))
	mem.Append(types.NewUserMessage("b"))
	snapshot := mem.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "b", snapshot[0].Content)
}

func TestWindowMemory_SnapshotIsCopy(t *testing.T) {
	mem := NewWindowMemory(5)
	mem.Append(types.NewUserMessage("original"))

	snapshot := mem.Snapshot()
	snapshot[0].Content = "mutated"

	assert.Equal(t, "original", mem.Snapshot()[0].Content)
}

func TestWindowMemory_UniqueIDs(t *testing.T) {
	a := NewWindowMemory(5)
	b := NewWindowMemory(5)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestWindowMemory_ConcurrentAppend(t *testing.T) {
	mem := NewWindowMemory(8)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mem.Append(types.NewUserMessage(fmt.Sprintf("turn-%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, mem.Len())
}

// 窗口不变式：长度从不超容量，保留的总是最近的轮次。
func TestWindowMemory_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 20).Draw(t, "capacity")
		n := rapid.IntRange(0, 60).Draw(t, "appends")

		mem := NewWindowMemory(capacity)
		for i := 0; i < n; i++ {
			mem.Append(types.NewUserMessage(fmt.Sprintf("turn-%d", i)))
		}

		snapshot := mem.Snapshot()
		expected := n
		if expected > capacity {
			expected = capacity
		}
		require.Len(t, snapshot, expected)

		for i, msg := range snapshot {
			assert.Equal(t, fmt.Sprintf("turn-%d", n-expected+i), msg.Content)
		}
	})
}
