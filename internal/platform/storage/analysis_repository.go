package storage

import (
	"context"

	"gorm.io/gorm"

	"dermalens-server-go/internal/platform/errors"
)

// MaxListSize 列表查询的固定上限
const MaxListSize = 100

// AnalysisRepository 分析记录仓库
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository 创建分析记录仓库实例
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create 保存新的分析记录
func (r *AnalysisRepository) Create(ctx context.Context, record *AnalysisRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "analysis.create", "failed to save analysis record", err)
	}
	return nil
}

// List 按创建时间倒序返回最多 MaxListSize 条记录
func (r *AnalysisRepository) List(ctx context.Context) ([]AnalysisRecord, error) {
	var records []AnalysisRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(MaxListSize).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "analysis.list", "failed to list analysis records", err)
	}
	return records, nil
}

// FindByID 根据ID查找分析记录
func (r *AnalysisRepository) FindByID(ctx context.Context, id uint) (*AnalysisRecord, error) {
	var record AnalysisRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.KindNotFound, "analysis.find_by_id", "analysis record not found")
		}
		return nil, errors.Wrap(errors.KindStorage, "analysis.find_by_id", "failed to find analysis record", err)
	}
	return &record, nil
}

// Update 全量保存分析记录
func (r *AnalysisRepository) Update(ctx context.Context, record *AnalysisRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "analysis.update", "failed to update analysis record", err)
	}
	return nil
}

// Delete 删除分析记录，记录不存在时返回 notfound
func (r *AnalysisRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&AnalysisRecord{}, id)
	if result.Error != nil {
		return errors.Wrap(errors.KindStorage, "analysis.delete", "failed to delete analysis record", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.KindNotFound, "analysis.delete", "analysis record not found")
	}
	return nil
}
