package storage

import (
	"context"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"dermalens-server-go/internal/platform/errors"
)

// AuditRepository 将领域事件落盘存档
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建事件存档仓库实例
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append 追加一条事件记录
func (r *AuditRepository) Append(ctx context.Context, eventType string, payload any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "audit.append", "failed to encode event payload", err)
	}
	event := &AuditEvent{
		EventType: eventType,
		Payload:   data,
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "audit.append", "failed to save audit event", err)
	}
	return nil
}

// Recent 返回指定类型最近的事件记录
func (r *AuditRepository) Recent(ctx context.Context, eventType string, limit int) ([]AuditEvent, error) {
	if limit <= 0 || limit > MaxListSize {
		limit = MaxListSize
	}
	var events []AuditEvent
	err := r.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "audit.recent", "failed to list audit events", err)
	}
	return events, nil
}
