package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Global database instance, initialised once at bootstrap.
var db *gorm.DB

// InitDatabase 打开 SQLite 数据库并迁移数据表
func InitDatabase(path string) error {
	if db != nil {
		return nil
	}

	if path == "" {
		path = filepath.Join("data", "dermalens.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	var err error
	db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&AnalysisRecord{}, &AuditEvent{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// GetDB returns the global database instance, or nil when the database
// failed to initialise. Callers must handle the nil case: the server keeps
// serving model endpoints without persistence.
func GetDB() *gorm.DB {
	return db
}

// AnalysisRecord 皮肤分析记录，result 字段存放模型产出的任意结构化结果
type AnalysisRecord struct {
	ID          uint           `gorm:"primaryKey"                json:"id"`
	ImageName   string         `gorm:"type:varchar(255)"         json:"imageName,omitempty"`
	Result      datatypes.JSON `gorm:"not null"                  json:"result"`
	Notes       string         `gorm:"type:text"                 json:"notes,omitempty"`
	ReferToDerm bool           `gorm:"default:false"             json:"referToDerm"`
	CreatedAt   time.Time      `                                 json:"createdAt"`
	UpdatedAt   time.Time      `                                 json:"updatedAt"`
}

// AuditEvent 领域事件存档模型
type AuditEvent struct {
	ID        uint           `gorm:"primaryKey"`
	EventType string         `gorm:"index;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"index"`
}
