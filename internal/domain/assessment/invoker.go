package assessment

import (
	"context"
	"strconv"
	"time"

	"dermalens-server-go/internal/domain/model"
	"dermalens-server-go/internal/platform/errors"
	"dermalens-server-go/internal/platform/observability"
	"dermalens-server-go/internal/utils"
)

const (
	// DefaultMaxAttempts 默认总尝试次数（首次调用含在内）
	DefaultMaxAttempts = 3
	// DefaultBaseDelay 首次失败后的基础退避时长，之后按 2 的幂递增
	DefaultBaseDelay = time.Second

	// resultLogLimit 成功日志中结果文本的截断长度
	resultLogLimit = 2000
)

// Invoker 以有界重试加指数退避的方式封装模型调用。
// 退避等待不随请求取消而中断，调用方视角下一次 Invoke 是原子的：
// 要么成功返回，要么在耗尽尝试后返回 model 类错误。
type Invoker struct {
	provider    model.Provider
	maxAttempts int
	baseDelay   time.Duration
	logger      *utils.Logger

	// sleep 可注入，测试中用于记录退避序列
	sleep func(time.Duration)
}

// NewInvoker 创建重试调用器，非法参数回落到默认值
func NewInvoker(provider model.Provider, maxAttempts int, baseDelay time.Duration, logger *utils.Logger) *Invoker {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Invoker{
		provider:    provider,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// Invoke 逐次调用模型，失败后按 baseDelay * 2^(n-1) 退避。
// 第 n 次（n == maxAttempts）失败立即返回，不再等待。
func (iv *Invoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	var lastErr error

	for attempt := 1; attempt <= iv.maxAttempts; attempt++ {
		result, err := iv.provider.Generate(ctx, req)
		if err == nil {
			iv.logger.InfoTag("模型", "第 %d/%d 次调用成功: %s",
				attempt, iv.maxAttempts, truncateForLog(result.Text))
			observability.RecordMetric(ctx, "model.invocations", 1, map[string]string{
				"component": "assessment.invoker",
				"attempt":   strconv.Itoa(attempt),
				"outcome":   "success",
			})
			return result, nil
		}

		lastErr = err
		iv.logger.WarnTag("模型", "第 %d/%d 次调用失败: %v", attempt, iv.maxAttempts, err)
		observability.RecordMetric(ctx, "model.invocations", 1, map[string]string{
			"component": "assessment.invoker",
			"attempt":   strconv.Itoa(attempt),
			"outcome":   "failure",
		})

		if attempt == iv.maxAttempts {
			break
		}

		delay := iv.baseDelay << (attempt - 1)
		iv.logger.InfoTag("模型", "%s 后进行第 %d 次重试", delay, attempt+1)
		iv.sleep(delay)
	}

	return nil, errors.Wrap(errors.KindModel, "model.invoke", "model unavailable", lastErr)
}

func truncateForLog(text string) string {
	if len(text) <= resultLogLimit {
		return text
	}
	return text[:resultLogLimit] + "..."
}
