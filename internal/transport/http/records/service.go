package records

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"dermalens-server-go/internal/domain/eventbus"
	"dermalens-server-go/internal/platform/cache"
	"dermalens-server-go/internal/platform/errors"
	"dermalens-server-go/internal/platform/storage"
	httptransport "dermalens-server-go/internal/transport/http"
	"dermalens-server-go/internal/utils"
)

// Service 分析记录 CRUD 的 HTTP 传输层实现。
// repo 为 nil 表示数据库未就绪，所有记录接口返回 500。
type Service struct {
	repo   *storage.AnalysisRepository
	cache  *cache.Cache
	logger *utils.Logger
}

// NewService 创建记录服务实例
func NewService(repo *storage.AnalysisRepository, c *cache.Cache, logger *utils.Logger) (*Service, error) {
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "records.new", "logger is required")
	}
	return &Service{
		repo:   repo,
		cache:  c,
		logger: logger,
	}, nil
}

// Register 注册分析记录相关的HTTP路由
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/analyses", s.handleCreate)
	router.GET("/analyses", s.handleList)
	router.GET("/analyses/:id", s.handleGet)
	router.PUT("/analyses/:id", s.handleUpdate)
	router.DELETE("/analyses/:id", s.handleDelete)

	s.logger.InfoTag("HTTP", "分析记录路由注册完成")
	return nil
}

type recordPayload struct {
	ImageName   *string `json:"imageName"`
	Result      any     `json:"result"`
	Notes       *string `json:"notes"`
	ReferToDerm *bool   `json:"referToDerm"`
}

func (s *Service) storeReady(c *gin.Context) bool {
	if s.repo != nil {
		return true
	}
	httptransport.RespondError(c, http.StatusInternalServerError, "database unavailable")
	return false
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		httptransport.RespondError(c, http.StatusNotFound, "Not found")
		return 0, false
	}
	return uint(id), true
}

func (s *Service) handleCreate(c *gin.Context) {
	if !s.storeReady(c) {
		return
	}

	var payload recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Result == nil {
		httptransport.RespondError(c, http.StatusBadRequest, "Missing result")
		return
	}

	resultJSON, err := sonic.Marshal(payload.Result)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "Invalid result value")
		return
	}

	record := &storage.AnalysisRecord{
		Result: datatypes.JSON(resultJSON),
	}
	if payload.ImageName != nil {
		record.ImageName = *payload.ImageName
	}
	if payload.Notes != nil {
		record.Notes = *payload.Notes
	}
	if payload.ReferToDerm != nil {
		record.ReferToDerm = *payload.ReferToDerm
	}

	if err := s.repo.Create(c.Request.Context(), record); err != nil {
		s.logger.WarnTag("存储", "创建分析记录失败: %v", err)
		httptransport.RespondStoreError(c, err)
		return
	}

	eventbus.PublishAsync(eventbus.TopicAnalysisCreated, eventbus.AnalysisEvent{
		ID:        record.ID,
		ImageName: record.ImageName,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": record})
}

func (s *Service) handleList(c *gin.Context) {
	if !s.storeReady(c) {
		return
	}
	ctx := c.Request.Context()

	if raw, ok := s.cacheGet(ctx, eventbus.ListCacheKey); ok {
		var cached []storage.AnalysisRecord
		if sonic.Unmarshal(raw, &cached) == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "analyses": cached})
			return
		}
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		httptransport.RespondStoreError(c, err)
		return
	}

	s.cacheSet(ctx, eventbus.ListCacheKey, records)
	c.JSON(http.StatusOK, gin.H{"success": true, "analyses": records})
}

func (s *Service) handleGet(c *gin.Context) {
	if !s.storeReady(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if raw, ok := s.cacheGet(ctx, eventbus.RecordCacheKey(id)); ok {
		var cached storage.AnalysisRecord
		if sonic.Unmarshal(raw, &cached) == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "analysis": cached})
			return
		}
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		httptransport.RespondStoreError(c, err)
		return
	}

	s.cacheSet(ctx, eventbus.RecordCacheKey(id), record)
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": record})
}

func (s *Service) handleUpdate(c *gin.Context) {
	if !s.storeReady(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		httptransport.RespondStoreError(c, err)
		return
	}

	var payload recordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.ImageName != nil {
		record.ImageName = *payload.ImageName
	}
	if payload.Notes != nil {
		record.Notes = *payload.Notes
	}
	if payload.ReferToDerm != nil {
		record.ReferToDerm = *payload.ReferToDerm
	}
	if payload.Result != nil {
		resultJSON, err := sonic.Marshal(payload.Result)
		if err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "Invalid result value")
			return
		}
		record.Result = datatypes.JSON(resultJSON)
	}

	if err := s.repo.Update(ctx, record); err != nil {
		s.logger.WarnTag("存储", "更新分析记录失败: %v", err)
		httptransport.RespondStoreError(c, err)
		return
	}

	eventbus.PublishAsync(eventbus.TopicAnalysisUpdated, eventbus.AnalysisEvent{
		ID:        record.ID,
		ImageName: record.ImageName,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": record})
}

func (s *Service) handleDelete(c *gin.Context) {
	if !s.storeReady(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.repo.Delete(c.Request.Context(), id); err != nil {
		httptransport.RespondStoreError(c, err)
		return
	}

	eventbus.PublishAsync(eventbus.TopicAnalysisDeleted, eventbus.AnalysisEvent{ID: id})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	raw, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnTag("缓存", "读取 %s 失败: %v", key, err)
		return nil, false
	}
	return raw, hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	raw, err := sonic.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.logger.WarnTag("缓存", "写入 %s 失败: %v", key, err)
	}
}
