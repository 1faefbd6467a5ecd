package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Query 一次用户提问：文本 + 所属会话标识。
type Query struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Decision 为一次查询选中的检索器标识符有序集合（可为空）。
type Decision []RetrieverID

// RouterKind 路由器变体。封闭集合，通过显式 switch 分派。
type RouterKind string

const (
	RouterFixed      RouterKind = "fixed"      // 恒定单一来源
	RouterClassifier RouterKind = "classifier" // LLM 从多个来源中选择
	RouterGate       RouterKind = "gate"       // oui/non/peut-être 门控
	RouterUnion      RouterKind = "union"      // 总是咨询全部来源
)

// SourceDescription 分类路由的来源描述：检索器 id + 其主题的自然语言说明。
type SourceDescription struct {
	ID          RetrieverID `json:"id" yaml:"id"`
	Description string      `json:"description" yaml:"description"`
}

// QueryLLMProvider 路由决策所需的生成协作者。
type QueryLLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// QueryLLMFunc 将函数适配为 QueryLLMProvider。
type QueryLLMFunc func(ctx context.Context, prompt string) (string, error)

func (f QueryLLMFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// DefaultGatePromptTemplate 门控提示模板。
// 占位符 {{question}} 与 {{topic}} 在 Route 时替换。
const DefaultGatePromptTemplate = "Est-ce que la question '{{question}}' porte sur {{topic}} ? " +
	"Réponds seulement par 'oui', 'non' ou 'peut-être'."

// gateAffirmative 唯一激活门控的标记。
const gateAffirmative = "oui"

const defaultRouteTimeout = 10 * time.Second

// Router 查询路由器：将查询映射到应咨询的检索器子集。
// 路由与取回是分离的两个阶段——路由器只产出标识符，从不执行检索。
// 每次 Route 调用相互独立，查询之间不保留状态。
type Router struct {
	kind RouterKind

	// fixed / union 变体
	fixed Decision

	// classifier 变体
	sources []SourceDescription

	// gate 变体
	gateTarget   RetrieverID
	gateTopic    string
	gateTemplate string

	provider QueryLLMProvider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFixedRouter 创建恒定返回单一检索器的路由器。
func NewFixedRouter(id RetrieverID) *Router {
	return &Router{
		kind:   RouterFixed,
		fixed:  Decision{id},
		logger: zap.NewNop(),
	}
}

// NewUnionRouter 创建总是返回全部已配置检索器的路由器。
func NewUnionRouter(ids ...RetrieverID) *Router {
	fixed := make(Decision, len(ids))
	copy(fixed, ids)
	return &Router{
		kind:   RouterUnion,
		fixed:  fixed,
		logger: zap.NewNop(),
	}
}

// NewClassifierRouter 创建基于 LLM 分类的路由器。
// 对每次查询构造包含全部来源描述的分类提示，解析模型输出选出
// 最匹配的单一检索器；解析失败时降级为空决定。
func NewClassifierRouter(provider QueryLLMProvider, sources []SourceDescription, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		kind:     RouterClassifier,
		sources:  sources,
		provider: provider,
		timeout:  defaultRouteTimeout,
		logger:   logger.With(zap.String("component", "query_router")),
	}
}

// NewGateRouter 创建包裹单一检索器的门控路由器。
// 仅当规范化后的模型回答明确包含肯定标记时才激活被包裹的检索器；
// 其余回答（含模糊的 peut-être）一律产出空决定。
// 保守偏置：漏检比向提示注入无关上下文代价更低。
func NewGateRouter(provider QueryLLMProvider, target RetrieverID, topic string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		kind:         RouterGate,
		gateTarget:   target,
		gateTopic:    topic,
		gateTemplate: DefaultGatePromptTemplate,
		provider:     provider,
		timeout:      defaultRouteTimeout,
		logger:       logger.With(zap.String("component", "query_router")),
	}
}

// WithTimeout 设置分类/门控调用的超时。超时降级为空决定。
func (r *Router) WithTimeout(d time.Duration) *Router {
	r.timeout = d
	return r
}

// WithGateTemplate 替换门控提示模板（需含 {{question}} 与 {{topic}} 占位符）。
func (r *Router) WithGateTemplate(tmpl string) *Router {
	r.gateTemplate = tmpl
	return r
}

// Kind 返回路由器变体。
func (r *Router) Kind() RouterKind { return r.kind }

// Route 为查询决定应咨询的检索器集合。
// 检索增强是尽力而为的：分类失败、解析失败与超时全部降级为空决定，
// 记录日志而不向上传播。
func (r *Router) Route(ctx context.Context, q Query) Decision {
	switch r.kind {
	case RouterFixed, RouterUnion:
		decision := make(Decision, len(r.fixed))
		copy(decision, r.fixed)
		return decision
	case RouterClassifier:
		return r.routeClassifier(ctx, q)
	case RouterGate:
		return r.routeGate(ctx, q)
	default:
		r.logger.Warn("unknown router kind, skipping retrieval", zap.String("kind", string(r.kind)))
		return Decision{}
	}
}

func (r *Router) routeClassifier(ctx context.Context, q Query) Decision {
	prompt := r.buildClassifierPrompt(q.Text)

	answer, err := r.complete(ctx, prompt)
	if err != nil {
		r.logClassifyFailure(q, err)
		return Decision{}
	}

	id, ok := r.parseClassifierAnswer(answer)
	if !ok {
		r.logger.Warn("classifier answer names no configured retriever, skipping retrieval",
			zap.String("query", truncate(q.Text, 80)),
			zap.String("answer", truncate(answer, 120)))
		return Decision{}
	}

	r.logger.Info("routing decision",
		zap.String("query", truncate(q.Text, 80)),
		zap.String("retriever", string(id)))

	return Decision{id}
}

// buildClassifierPrompt 枚举全部来源描述，要求模型只回答来源编号或名称。
func (r *Router) buildClassifierPrompt(question string) string {
	var sb strings.Builder
	sb.WriteString("Based on the user query, determine the most suitable data source to retrieve relevant information from.\n")
	sb.WriteString("Here are the available data sources:\n")
	for i, src := range r.sources {
		fmt.Fprintf(&sb, "%d: %s (%s)\n", i+1, src.ID, src.Description)
	}
	sb.WriteString("Reply with only the number or the name of the selected data source, nothing else.\n")
	fmt.Fprintf(&sb, "User query: %s", question)
	return sb.String()
}

// parseClassifierAnswer 在模型输出中定位已配置的来源：
// 先按 1 起始编号匹配，再按 id 大小写无关包含匹配。
func (r *Router) parseClassifierAnswer(answer string) (RetrieverID, bool) {
	normalized := strings.ToLower(strings.TrimSpace(answer))

	if n, err := strconv.Atoi(strings.Trim(normalized, ".")); err == nil {
		if n >= 1 && n <= len(r.sources) {
			return r.sources[n-1].ID, true
		}
		return "", false
	}

	for _, src := range r.sources {
		if strings.Contains(normalized, strings.ToLower(string(src.ID))) {
			return src.ID, true
		}
	}
	return "", false
}

func (r *Router) routeGate(ctx context.Context, q Query) Decision {
	prompt := strings.NewReplacer(
		"{{question}}", q.Text,
		"{{topic}}", r.gateTopic,
	).Replace(r.gateTemplate)

	answer, err := r.complete(ctx, prompt)
	if err != nil {
		r.logClassifyFailure(q, err)
		return Decision{}
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))

	// 只有明确的肯定才激活检索；non 与 peut-être 都视为否
	if strings.Contains(normalized, gateAffirmative) {
		r.logger.Info("gate opened, retrieval enabled",
			zap.String("query", truncate(q.Text, 80)),
			zap.String("answer", normalized))
		return Decision{r.gateTarget}
	}

	r.logger.Info("gate closed, retrieval skipped",
		zap.String("query", truncate(q.Text, 80)),
		zap.String("answer", normalized))
	return Decision{}
}

// complete 在路由超时内调用生成协作者。
func (r *Router) complete(ctx context.Context, prompt string) (string, error) {
	if r.provider == nil {
		return "", fmt.Errorf("router has no llm provider configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.provider.Complete(ctx, prompt)
}

func (r *Router) logClassifyFailure(q Query, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		r.logger.Warn("routing call timed out, skipping retrieval",
			zap.String("query", truncate(q.Text, 80)))
		return
	}
	r.logger.Warn("routing call failed, skipping retrieval",
		zap.String("query", truncate(q.Text, 80)),
		zap.Error(err))
}

// truncate 将字符串截断到最大长度。
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
