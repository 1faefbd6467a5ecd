package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/BaSui01/ragcore/types"
)

// WindowMemory 固定容量的滑动窗口会话记忆。
// 容量在构造时固定；超出时最旧的轮次先被驱逐。
type WindowMemory struct {
	mu       sync.Mutex
	id       string
	capacity int
	turns    []types.Message
}

// NewWindowMemory 创建容量为 capacity 的会话记忆（capacity < 1 时取 1）。
func NewWindowMemory(capacity int) *WindowMemory {
	if capacity < 1 {
		capacity = 1
	}
	return &WindowMemory{
		id:       uuid.NewString(),
		capacity: capacity,
		turns:    make([]types.Message, 0, capacity),
	}
}

// ID 返回会话标识符。
func (m *WindowMemory) ID() string { return m.id }

// Capacity 返回窗口容量。
func (m *WindowMemory) Capacity() int { return m.capacity }

// Append 在窗口尾部追加一个轮次，必要时驱逐最旧的轮次。
func (m *WindowMemory) Append(turn types.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)
	if len(m.turns) > m.capacity {
		m.turns = m.turns[len(m.turns)-m.capacity:]
	}
}

// Snapshot 返回当前窗口的副本，按时间顺序（最旧在前）。
func (m *WindowMemory) Snapshot() []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]types.Message, len(m.turns))
	copy(snapshot, m.turns)
	return snapshot
}

// Len 返回当前窗口内的轮次数。
func (m *WindowMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
