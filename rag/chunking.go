package rag

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcore/types"
)

// Document 待摄取的原始文档
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Segment 检索的最小文本单元。创建后不再变更。
type Segment struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"` // 来源文档 ID
	Ordinal  int    `json:"ordinal"`   // 在文档内的序号，从 0 开始
}

// SplitterConfig 分块配置
type SplitterConfig struct {
	MaxSegmentSize int `json:"max_segment_size" yaml:"max_segment_size"` // 块大小上限（rune 数）
	Overlap        int `json:"overlap" yaml:"overlap"`                   // 相邻块共享的尾部长度（rune 数）
}

// DefaultSplitterConfig 返回默认分块配置。
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		MaxSegmentSize: 300,
		Overlap:        30,
	}
}

// Splitter 确定性文档分块器。
// 滑动窗口推进，窗口尾部优先回退到句子边界；相邻块共享 Overlap 个 rune，
// 避免切点处语义断裂。相同输入与参数总是产生相同的块序列。
type Splitter struct {
	config SplitterConfig
	logger *zap.Logger
}

// NewSplitter 创建分块器。Overlap 必须小于 MaxSegmentSize。
func NewSplitter(config SplitterConfig, logger *zap.Logger) (*Splitter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxSegmentSize <= 0 {
		return nil, types.NewErrorf(types.ErrInvalidConfig,
			"max segment size must be positive, got %d", config.MaxSegmentSize)
	}
	if config.Overlap < 0 || config.Overlap >= config.MaxSegmentSize {
		return nil, types.NewErrorf(types.ErrInvalidConfig,
			"overlap must be in [0, %d), got %d", config.MaxSegmentSize, config.Overlap)
	}
	return &Splitter{
		config: config,
		logger: logger.With(zap.String("component", "splitter")),
	}, nil
}

// 句子结束标记
var sentenceEnders = []rune{'.', '。', '!', '！', '?', '？', '\n'}

// Split 将文档切分为重叠的 Segment 序列。
// 空文档产生零个块；短于 MaxSegmentSize 的文档恰好产生一个块。
func (s *Splitter) Split(doc Document) []Segment {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	maxSize := s.config.MaxSegmentSize
	overlap := s.config.Overlap

	if len(runes) <= maxSize {
		return []Segment{{Text: text, SourceID: doc.ID, Ordinal: 0}}
	}

	var segments []Segment
	start := 0
	for {
		end := start + maxSize
		if end >= len(runes) {
			segments = append(segments, Segment{
				Text:     string(runes[start:]),
				SourceID: doc.ID,
				Ordinal:  len(segments),
			})
			break
		}

		end = s.adjustToBoundary(runes, start, end)
		segments = append(segments, Segment{
			Text:     string(runes[start:end]),
			SourceID: doc.ID,
			Ordinal:  len(segments),
		})

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	s.logger.Debug("document split",
		zap.String("source_id", doc.ID),
		zap.Int("runes", len(runes)),
		zap.Int("segments", len(segments)))

	return segments
}

// adjustToBoundary 将切点回退到最近的句子边界，只在窗口后半部分查找；
// 找不到句末标点时退而求空白符，再找不到则保持硬切点。
func (s *Splitter) adjustToBoundary(runes []rune, start, end int) int {
	limit := start + (end-start)/2

	for i := end - 1; i > limit; i-- {
		for _, ender := range sentenceEnders {
			if runes[i] == ender {
				return i + 1
			}
		}
	}

	for i := end - 1; i > limit; i-- {
		if runes[i] == ' ' || runes[i] == '\t' {
			return i + 1
		}
	}

	return end
}
