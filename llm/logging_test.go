package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/ragcore/types"
)

// stubProvider 记录请求并返回预置响应。
type stubProvider struct {
	reply string
	err   error
	calls []*GenerateRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(_ context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return &GenerateResponse{
		Text:      p.reply,
		Model:     req.Model,
		Provider:  "stub",
		CreatedAt: time.Now(),
	}, nil
}

func TestLoggingProvider_ImplementsProvider(t *testing.T) {
	var _ Provider = (*LoggingProvider)(nil)
}

func TestLoggingProvider_PassThrough(t *testing.T) {
	inner := &stubProvider{reply: "the answer"}
	wrapped := NewLoggingProvider(inner, zap.NewNop())

	assert.Equal(t, "stub", wrapped.Name())

	resp, err := wrapped.Generate(context.Background(), &GenerateRequest{
		Model:    "test-model",
		Messages: []types.Message{types.NewUserMessage("question")},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Text)
	require.Len(t, inner.calls, 1)
	assert.Equal(t, "test-model", inner.calls[0].Model)
}

func TestLoggingProvider_ErrorPassThrough(t *testing.T) {
	innerErr := errors.New("upstream failure")
	wrapped := NewLoggingProvider(&stubProvider{err: innerErr}, nil)

	_, err := wrapped.Generate(context.Background(), &GenerateRequest{
		Messages: []types.Message{types.NewUserMessage("question")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, innerErr)
}

func TestComplete(t *testing.T) {
	inner := &stubProvider{reply: "oui"}

	answer, err := Complete(context.Background(), inner, "Est-ce une question ?")
	require.NoError(t, err)
	assert.Equal(t, "oui", answer)

	require.Len(t, inner.calls, 1)
	require.Len(t, inner.calls[0].Messages, 1)
	assert.Equal(t, types.RoleUser, inner.calls[0].Messages[0].Role)
	assert.Equal(t, "Est-ce une question ?", inner.calls[0].Messages[0].Content)
}

func TestComplete_Error(t *testing.T) {
	inner := &stubProvider{err: errors.New("down")}

	_, err := Complete(context.Background(), inner, "prompt")
	require.Error(t, err)
}
