package kb

import (
	"context"
	"fmt"
	"time"

	"asha-triage/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Retriever 知识库检索协作方接口
// 给定自由文本查询，返回按相关性降序排列的文档片段；空结果是合法的
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*models.RAGContext, error)
}

// retrieveRequest 检索服务 API 请求
type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

// retrieveResponse 检索服务 API 响应
type retrieveResponse struct {
	Results []struct {
		DocumentID string  `json:"documentId"`
		Title      string  `json:"title"`
		Excerpt    string  `json:"excerpt"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// KnowledgeBaseClient 医疗协议知识库 HTTP 客户端
type KnowledgeBaseClient struct {
	httpClient *resty.Client
	topK       int
	logger     *zap.Logger
}

// NewKnowledgeBaseClient 创建知识库客户端
// 不做内部重试：检索失败由调用方决定重试策略
func NewKnowledgeBaseClient(baseURL, apiKey string, topK int, timeout time.Duration, logger *zap.Logger) *KnowledgeBaseClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	if topK <= 0 {
		topK = 5
	}

	return &KnowledgeBaseClient{
		httpClient: client,
		topK:       topK,
		logger:     logger,
	}
}

// Retrieve 检索与症状相关的医疗协议片段
func (c *KnowledgeBaseClient) Retrieve(ctx context.Context, query string) (*models.RAGContext, error) {
	startTime := time.Now()

	c.logger.Debug("Retrieving from knowledge base",
		zap.String("query", query),
		zap.Int("top_k", c.topK),
	)

	var response retrieveResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(retrieveRequest{Query: query, TopK: c.topK}).
		SetResult(&response).
		Post("/retrieve")

	if err != nil {
		return nil, fmt.Errorf("failed to call knowledge base: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("knowledge base returned status %d", resp.StatusCode())
	}

	retrievalTimeMs := time.Since(startTime).Milliseconds()

	// 保留检索方给出的排序；分数只做回显，不重新校验
	documents := make([]models.RetrievedDocument, 0, len(response.Results))
	for _, result := range response.Results {
		documentID := result.DocumentID
		if documentID == "" {
			documentID = "unknown"
		}
		title := result.Title
		if title == "" {
			title = "Medical Protocol"
		}
		documents = append(documents, models.RetrievedDocument{
			DocumentID:     documentID,
			Title:          title,
			Excerpt:        result.Excerpt,
			RelevanceScore: result.Score,
		})
	}

	c.logger.Info("Knowledge base retrieval successful",
		zap.Int("documents_retrieved", len(documents)),
		zap.Int64("retrieval_time_ms", retrievalTimeMs),
	)

	return &models.RAGContext{
		Query:              query,
		RetrievedDocuments: documents,
		TotalDocuments:     len(documents),
		RetrievalTimeMs:    retrievalTimeMs,
	}, nil
}
