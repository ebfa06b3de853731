package triage

import (
	"context"
	"time"

	"asha-triage/internal/kb"
	"asha-triage/internal/models"

	"go.uber.org/zap"
)

// Outcome 一次分诊流水线的完整产出
// 调用方负责分配 triageId、包装为 TriageResult 并持久化
type Outcome struct {
	Response            models.TriageResponse
	RAGContext          *models.RAGContext
	ProcessingTimeMs    int64
	TokensUsed          int
	GuardrailsTriggered bool
	ModelVersion        string
	Fallback            bool // 提取是否走了兜底路径
}

// Orchestrator 分诊编排器
// 严格顺序执行：检索 → 上下文 → 提示词 → 生成 → 提取
// 无内部状态，不做持久化，不做内部重试
type Orchestrator struct {
	retriever kb.Retriever
	generator kb.Generator
	logger    *zap.Logger
}

// NewOrchestrator 创建分诊编排器（依赖注入，便于测试替换）
func NewOrchestrator(retriever kb.Retriever, generator kb.Generator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// PerformTriage 执行完整分诊流水线
// 检索或生成失败返回类型化错误并中止；提取永不中止（兜底响应）
func (o *Orchestrator) PerformTriage(ctx context.Context, req *models.TriageRequest) (*Outcome, error) {
	startTime := time.Now()

	// 1. 检索医疗协议（症状文本原样作为查询）
	ragContext, err := o.retriever.Retrieve(ctx, req.Symptoms)
	if err != nil {
		o.logger.Error("Knowledge base retrieval failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return nil, &KnowledgeBaseError{Query: req.Symptoms, Err: err}
	}

	// 2. 构建上下文
	contextText := BuildContext(ragContext)

	// 3. 组装提示词（含固定 schema 和安全约束）
	prompt := BuildTriagePrompt(req, contextText)

	// 4. 调用生成（失败包装为领域错误，不泄漏传输层错误）
	generation, err := o.generator.Generate(ctx, prompt, SystemPrompt())
	if err != nil {
		o.logger.Error("Assessment generation failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return nil, &GenerationError{Err: err}
	}

	// 5. 提取结构化响应（不会失败，最坏情况是兜底响应）
	response, fallback := ExtractResponse(generation.Text)
	if fallback {
		o.logger.Warn("Generation output could not be parsed, using fallback response",
			zap.String("user_id", req.UserID),
			zap.Int("output_length", len(generation.Text)),
		)
	}

	processingTimeMs := time.Since(startTime).Milliseconds()

	o.logger.Info("Triage completed",
		zap.String("user_id", req.UserID),
		zap.String("urgency_level", string(response.UrgencyLevel)),
		zap.Float64("risk_score", response.RiskScore),
		zap.Int("retrieved_documents", ragContext.TotalDocuments),
		zap.Bool("fallback", fallback),
		zap.Int64("processing_time_ms", processingTimeMs),
	)

	return &Outcome{
		Response:            response,
		RAGContext:          ragContext,
		ProcessingTimeMs:    processingTimeMs,
		TokensUsed:          generation.TokensUsed,
		GuardrailsTriggered: generation.GuardrailsTriggered,
		ModelVersion:        generation.ModelVersion,
		Fallback:            fallback,
	}, nil
}
