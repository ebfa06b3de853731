package triage

import "fmt"

// ValidationError 请求校验失败（客户端错误，不可重试）
// Field 指出第一个违反约束的字段
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// KnowledgeBaseError 知识库检索失败（上游不可用，可由调用方重试）
type KnowledgeBaseError struct {
	Query string
	Err   error
}

func (e *KnowledgeBaseError) Error() string {
	return fmt.Sprintf("knowledge base retrieval failed for query %q: %v", e.Query, e.Err)
}

func (e *KnowledgeBaseError) Unwrap() error {
	return e.Err
}

// GenerationError 推理服务失败（上游不可用，可由调用方重试）
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("triage assessment generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
