package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// GenerationResult 推理服务的原始输出
// Text 可能包含也可能不包含 JSON 对象，由提取器负责解析
type GenerationResult struct {
	Text                string
	TokensUsed          int
	GuardrailsTriggered bool
	ModelVersion        string
}

// Generator 生成协作方接口
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (*GenerationResult, error)
}

// GenerationConfig 推理参数（有界的 token/温度/top-p 配置）
type GenerationConfig struct {
	ModelVersion string
	MaxTokens    int
	Temperature  float64
	TopP         float64
}

// invokeRequest 推理服务 API 请求
type invokeRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

// invokeResponse 推理服务 API 响应
type invokeResponse struct {
	Text  string `json:"text"`
	Usage struct {
		TotalTokens int `json:"totalTokens"`
	} `json:"usage"`
	GuardrailsTriggered bool   `json:"guardrailsTriggered"`
	ModelVersion        string `json:"modelVersion"`
}

// InferenceClient 推理服务 HTTP 客户端
type InferenceClient struct {
	httpClient *resty.Client
	genConfig  GenerationConfig
	logger     *zap.Logger
}

// NewInferenceClient 创建推理客户端
// 超时即失败，不做内部重试
func NewInferenceClient(baseURL, apiKey string, genConfig GenerationConfig, timeout time.Duration, logger *zap.Logger) *InferenceClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &InferenceClient{
		httpClient: client,
		genConfig:  genConfig,
		logger:     logger,
	}
}

// Generate 调用推理服务生成分诊评估文本
func (c *InferenceClient) Generate(ctx context.Context, prompt, system string) (*GenerationResult, error) {
	c.logger.Debug("Invoking inference service",
		zap.String("model", c.genConfig.ModelVersion),
		zap.Int("prompt_length", len(prompt)),
	)

	var response invokeResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(invokeRequest{
			Model:       c.genConfig.ModelVersion,
			Prompt:      prompt,
			System:      system,
			MaxTokens:   c.genConfig.MaxTokens,
			Temperature: c.genConfig.Temperature,
			TopP:        c.genConfig.TopP,
		}).
		SetResult(&response).
		Post("/invoke")

	if err != nil {
		return nil, fmt.Errorf("failed to call inference service: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode())
	}

	modelVersion := response.ModelVersion
	if modelVersion == "" {
		modelVersion = c.genConfig.ModelVersion
	}

	c.logger.Info("Inference completed",
		zap.Int("tokens_used", response.Usage.TotalTokens),
		zap.Bool("guardrails_triggered", response.GuardrailsTriggered),
	)

	return &GenerationResult{
		Text:                response.Text,
		TokensUsed:          response.Usage.TotalTokens,
		GuardrailsTriggered: response.GuardrailsTriggered,
		ModelVersion:        modelVersion,
	}, nil
}
