package triage

import (
	"fmt"
	"strings"

	"asha-triage/internal/models"
)

// NoProtocolsSentinel 检索结果为空时的降级提示
// 这是刻意的降级路径，不是错误：让下游生成退回到通用分诊原则
const NoProtocolsSentinel = "No specific medical protocols retrieved. Use general triage principles."

// BuildContext 将检索快照渲染为提示词上下文字符串
// 纯函数：文档顺序按检索方给出的顺序保留，不做重排或按分数过滤
func BuildContext(ragContext *models.RAGContext) string {
	if len(ragContext.RetrievedDocuments) == 0 {
		return NoProtocolsSentinel
	}

	blocks := make([]string, 0, len(ragContext.RetrievedDocuments))
	for i, doc := range ragContext.RetrievedDocuments {
		blocks = append(blocks, fmt.Sprintf(
			"[Document %d: %s]\nRelevance Score: %.2f\nContent: %s",
			i+1, doc.Title, doc.RelevanceScore, doc.Excerpt,
		))
	}

	var b strings.Builder
	b.WriteString("Retrieved Medical Protocols:\n")
	b.WriteString(strings.Join(blocks, "\n---\n"))
	b.WriteString("\n\nUse these protocols to inform your triage assessment.")
	return b.String()
}
