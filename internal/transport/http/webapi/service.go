package webapi

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"dermalens-server-go/internal/domain/catalog"
	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/platform/errors"
	"dermalens-server-go/internal/utils"
)

// Service 健康检查、目录与系统状态接口
type Service struct {
	config    *config.Config
	logger    *utils.Logger
	startTime time.Time
}

// NewService 创建WebAPI服务实例
func NewService(cfg *config.Config, logger *utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "logger is required")
	}
	return &Service{
		config:    cfg,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Register 注册 /api 下的路由
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/health", s.handleHealth)
	router.GET("/system/status", s.handleSystemStatus)

	s.logger.InfoTag("HTTP", "WebAPI路由注册完成")
	return nil
}

// RegisterPublic 注册引擎根路径下的路由
func (s *Service) RegisterPublic(root gin.IRouter) {
	root.GET("/common-conditions", s.handleCommonConditions)
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Service) handleCommonConditions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"conditions": catalog.Common(),
	})
}

func (s *Service) handleSystemStatus(c *gin.Context) {
	ctx := c.Request.Context()

	status := gin.H{
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status["memory"] = gin.H{
			"total":        vm.Total,
			"used":         vm.Used,
			"used_percent": vm.UsedPercent,
		}
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		status["host"] = gin.H{
			"hostname": info.Hostname,
			"os":       info.OS,
			"platform": info.Platform,
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}
