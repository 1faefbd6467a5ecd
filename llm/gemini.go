package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcore/types"
)

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey         string        `json:"api_key" yaml:"api_key"`
	BaseURL        string        `json:"base_url" yaml:"base_url"`
	Model          string        `json:"model" yaml:"model"`
	EmbeddingModel string        `json:"embedding_model" yaml:"embedding_model"`
	Temperature    float32       `json:"temperature" yaml:"temperature"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultGeminiConfig 返回默认配置。
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL:        "https://generativelanguage.googleapis.com",
		Model:          "gemini-2.0-flash-exp",
		EmbeddingModel: "text-embedding-004",
		Temperature:    0.7,
		Timeout:        60 * time.Second,
	}
}

// GeminiProvider 实现 Google Gemini 的生成 Provider。
// 使用 x-goog-api-key 请求头认证，调用 v1beta generateContent 接口。
type GeminiProvider struct {
	cfg    GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider。
func NewGeminiProvider(cfg GeminiConfig, logger *zap.Logger) *GeminiProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", "gemini")),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Gemini 消息结构
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiResponse struct {
	Candidates   []geminiCandidate `json:"candidates"`
	ModelVersion string            `json:"modelVersion,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *GeminiProvider) buildHeaders(req *http.Request) {
	// Gemini 使用 x-goog-api-key 认证
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// convertToGeminiContents 将统一格式转换为 Gemini 格式
func convertToGeminiContents(msgs []types.Message) (*geminiContent, []geminiContent) {
	var systemInstruction *geminiContent
	var contents []geminiContent

	for _, m := range msgs {
		// 提取 system 消息
		if m.Role == types.RoleSystem {
			systemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: m.Content}},
			}
			continue
		}

		// Gemini 使用 "model" 而不是 "assistant"
		role := string(m.Role)
		if role == "assistant" {
			role = "model"
		}

		if m.Content == "" {
			continue
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	return systemInstruction, contents
}

// Generate 调用 generateContent 并返回首个候选的文本。
func (p *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	systemInstruction, contents := convertToGeminiContents(req.Messages)

	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: systemInstruction,
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.cfg.Temperature
	}
	if temperature > 0 || req.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, mapGeminiTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readGeminiErrMsg(resp.Body)
		return nil, types.NewErrorf(types.ErrGenerationFailure,
			"gemini generateContent: status=%d msg=%s", resp.StatusCode, msg)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, types.NewError(types.ErrGenerationFailure, "decode gemini response").WithCause(err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, types.NewError(types.ErrGenerationFailure, "gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return &GenerateResponse{
		Text:      sb.String(),
		Model:     model,
		Provider:  p.Name(),
		CreatedAt: time.Now(),
	}, nil
}

// ====== 嵌入 ======

// GeminiEmbedding 实现基于 Gemini embedContent 的 EmbeddingProvider。
type GeminiEmbedding struct {
	cfg    GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiEmbedding 创建 Gemini 嵌入 Provider。
func NewGeminiEmbedding(cfg GeminiConfig, logger *zap.Logger) *GeminiEmbedding {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &GeminiEmbedding{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("provider", "gemini_embedding")),
	}
}

type geminiEmbedContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string             `json:"model,omitempty"`
	Content geminiEmbedContent `json:"content"`
}

type geminiEmbedValues struct {
	Values []float64 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiEmbedValues `json:"embedding"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []geminiEmbedValues `json:"embeddings"`
}

// Embed 将单段文本映射为向量。
func (e *GeminiEmbedding) Embed(ctx context.Context, text string) ([]float64, error) {
	body := geminiEmbedRequest{
		Content: geminiEmbedContent{Parts: []geminiPart{{Text: text}}},
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:embedContent",
		strings.TrimRight(e.cfg.BaseURL, "/"), e.cfg.EmbeddingModel)

	var out geminiEmbedResponse
	if err := e.post(ctx, endpoint, body, &out); err != nil {
		return nil, err
	}
	return out.Embedding.Values, nil
}

// EmbedAll 批量嵌入，保持输入顺序。
func (e *GeminiEmbedding) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := "models/" + e.cfg.EmbeddingModel
	body := geminiBatchEmbedRequest{
		Requests: make([]geminiEmbedRequest, 0, len(texts)),
	}
	for _, t := range texts {
		body.Requests = append(body.Requests, geminiEmbedRequest{
			Model:   model,
			Content: geminiEmbedContent{Parts: []geminiPart{{Text: t}}},
		})
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents",
		strings.TrimRight(e.cfg.BaseURL, "/"), e.cfg.EmbeddingModel)

	var out geminiBatchEmbedResponse
	if err := e.post(ctx, endpoint, body, &out); err != nil {
		return nil, err
	}

	if len(out.Embeddings) != len(texts) {
		return nil, types.NewErrorf(types.ErrEmbeddingFailure,
			"gemini returned %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(out.Embeddings))
	for i, emb := range out.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *GeminiEmbedding) post(ctx context.Context, endpoint string, body, out any) error {
	payload, _ := json.Marshal(body)

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	httpReq.Header.Set("x-goog-api-key", e.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return types.NewError(types.ErrEmbeddingFailure, "gemini embedding request").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readGeminiErrMsg(resp.Body)
		return types.NewErrorf(types.ErrEmbeddingFailure,
			"gemini embedding: status=%d msg=%s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrEmbeddingFailure, "decode gemini embedding response").WithCause(err)
	}
	return nil
}

// ====== 帮助函数 ======

func readGeminiErrMsg(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var errResp geminiErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// mapGeminiTransportError 区分超时与其他传输错误。
func mapGeminiTransportError(err error) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrGenerationTimeout, "gemini request timed out").WithCause(err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewError(types.ErrGenerationTimeout, "gemini request timed out").WithCause(err)
	}
	return types.NewError(types.ErrGenerationFailure, "gemini request failed").WithCause(err)
}
