package eventbus

import (
	"context"
	"fmt"
	"time"

	"dermalens-server-go/internal/platform/cache"
	"dermalens-server-go/internal/platform/storage"
	"dermalens-server-go/internal/utils"
)

// AnalysisEvent 分析记录变更事件载荷
type AnalysisEvent struct {
	ID        uint   `json:"id"`
	ImageName string `json:"imageName,omitempty"`
}

// FallbackEvent 模型降级事件载荷
type FallbackEvent struct {
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// ListCacheKey 分析记录列表的缓存键
const ListCacheKey = "analyses"

// RecordCacheKey 单条分析记录的缓存键
func RecordCacheKey(id uint) string {
	return fmt.Sprintf("analysis:%d", id)
}

// SetupEventHandlers 注册审计落盘与缓存失效的事件处理器。
// audit 或 cache 为 nil 时对应处理器跳过。
func SetupEventHandlers(audit *storage.AuditRepository, c *cache.Cache, logger *utils.Logger) error {
	if logger == nil {
		logger = utils.DefaultLogger
	}

	appendAudit := func(topic string, payload any) {
		if audit == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := audit.Append(ctx, topic, payload); err != nil {
			logger.WarnTag("事件", "审计事件 %s 落盘失败: %v", topic, err)
		}
	}

	invalidate := func(keys ...string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Invalidate(ctx, keys...); err != nil {
			logger.WarnTag("事件", "缓存失效失败: %v", err)
		}
	}

	mutationTopics := []string{TopicAnalysisCreated, TopicAnalysisUpdated, TopicAnalysisDeleted}
	for _, topic := range mutationTopics {
		topic := topic
		err := SubscribeAsync(topic, func(event AnalysisEvent) {
			appendAudit(topic, event)
			invalidate(ListCacheKey, RecordCacheKey(event.ID))
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	err := SubscribeAsync(TopicModelFallback, func(event FallbackEvent) {
		logger.WarnTag("事件", "模型降级: %s (%s)", event.Operation, event.Reason)
		appendAudit(TopicModelFallback, event)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicModelFallback, err)
	}

	return nil
}
