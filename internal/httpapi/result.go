package httpapi

import (
	"errors"
	"net/http"

	"asha-triage/internal/repository"
	"asha-triage/internal/triage"

	"go.uber.org/zap"
)

// Result 统一响应封装
// - code: 2000 成功，-1 业务错误
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// writeError 将服务层错误映射为 HTTP 状态码
// - 校验错误 → 400（带字段信息）
// - 未找到 → 404
// - 检索/生成失败 → 503（对外隐藏上游细节）
// - 存储失败 → 503
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validationErr *triage.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, Fail(validationErr.Error()))
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, Fail("resource not found"))
		return
	}

	var kbErr *triage.KnowledgeBaseError
	var genErr *triage.GenerationError
	if errors.As(err, &kbErr) || errors.As(err, &genErr) {
		logger.Error("Upstream AI service failure", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("AI service temporarily unavailable"))
		return
	}

	var storageErr *repository.StorageError
	if errors.As(err, &storageErr) {
		logger.Error("Storage failure", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("service temporarily unavailable"))
		return
	}

	logger.Error("Unhandled request failure", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("internal server error"))
}
