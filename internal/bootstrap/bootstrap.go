package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dermalens-server-go/internal/domain/assessment"
	"dermalens-server-go/internal/domain/eventbus"
	domainimage "dermalens-server-go/internal/domain/image"
	"dermalens-server-go/internal/domain/model"
	platformcache "dermalens-server-go/internal/platform/cache"
	platformconfig "dermalens-server-go/internal/platform/config"
	platformerrors "dermalens-server-go/internal/platform/errors"
	platformobservability "dermalens-server-go/internal/platform/observability"
	platformstorage "dermalens-server-go/internal/platform/storage"
	httptransport "dermalens-server-go/internal/transport/http"
	httpanalyze "dermalens-server-go/internal/transport/http/analyze"
	httprecords "dermalens-server-go/internal/transport/http/records"
	httpwebapi "dermalens-server-go/internal/transport/http/webapi"
	"dermalens-server-go/internal/utils"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	logger                *utils.Logger
	cache                 *platformcache.Cache
	modelProvider         model.Provider
	assessor              *assessment.Service
	imagePipeline         *domainimage.Pipeline
	observabilityShutdown platformobservability.ShutdownFunc
	storeReady            bool
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.assessor == nil || state.imagePipeline == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"model services not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
			}
		}()
	}

	defer eventbus.Shutdown()
	defer func() {
		if err := state.cache.Close(); err != nil {
			logger.WarnTag("缓存", "Redis 连接未正常关闭: %v", err)
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("引导", "服务已退出")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")

	stepNames := map[string]string{
		"config:load":           "加载配置",
		"logging:init":          "初始化日志",
		"observability:setup":   "设置可观测性钩子",
		"storage:init-database": "初始化数据库",
		"cache:init":            "初始化缓存",
		"model:init-provider":   "初始化模型后端",
		"events:setup-handlers": "注册事件处理器",
	}

	for _, step := range steps {
		if name, ok := stepNames[step.ID]; ok {
			logger.InfoTag("引导", name)
		}
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph 声明初始化步骤及其依赖关系
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "cache:init",
			Title:     "Initialise cache",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initCacheStep,
		},
		{
			ID:        "model:init-provider",
			Title:     "Initialise model provider",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindModel,
			Execute:   initModelStep,
		},
		{
			ID:        "events:setup-handlers",
			Title:     "Setup event handlers",
			DependsOn: []string{"storage:init-database", "cache:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupEventHandlersStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	cfg, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = cfg
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init", "config not loaded")
	}

	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: state.config.Log.Level,
		LogDir:   state.config.Log.Dir,
		LogFile:  state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialize logger", err)
	}

	state.logger = logger
	utils.DefaultLogger = logger

	logger.InfoTag("引导", "日志模块就绪 [%s]", state.config.Log.Level)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "observability:setup", "config/logger not initialised")
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

// initDatabaseStep 数据库初始化失败不终止启动，
// 记录接口会返回 500，模型接口照常服务。
func initDatabaseStep(_ context.Context, state *appState) error {
	if err := platformstorage.InitDatabase(state.config.Database.Path); err != nil {
		state.logger.ErrorTag("存储", "数据库初始化失败，记录接口不可用: %v", err)
		return nil
	}
	state.storeReady = true
	state.logger.InfoTag("存储", "数据库就绪: %s", state.config.Database.Path)
	return nil
}

// initCacheStep 缓存是可选依赖，连接失败只降级不报错
func initCacheStep(_ context.Context, state *appState) error {
	if state.config.Redis.Addr == "" {
		state.logger.InfoTag("缓存", "未配置 Redis，缓存已禁用")
		return nil
	}

	c, err := platformcache.New(state.config.Redis)
	if err != nil {
		state.logger.WarnTag("缓存", "Redis 连接失败，缓存已禁用: %v", err)
		return nil
	}
	state.cache = c
	state.logger.InfoTag("缓存", "Redis 就绪: %s", state.config.Redis.Addr)
	return nil
}

func initModelStep(ctx context.Context, state *appState) error {
	provider, err := model.NewProvider(ctx, state.config.Model, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindModel, "model:init-provider", "failed to create model provider", err)
	}
	state.modelProvider = provider

	invoker := assessment.NewInvoker(
		provider,
		state.config.Model.MaxAttempts,
		state.config.Model.BaseDelay.Std(),
		state.logger,
	)
	assessor, err := assessment.NewService(invoker, state.config.Model.ModelName, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindModel, "model:init-provider", "failed to create assessment service", err)
	}
	state.assessor = assessor

	pipeline, err := domainimage.NewPipeline(&state.config.Upload, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "model:init-provider", "failed to create image pipeline", err)
	}
	state.imagePipeline = pipeline

	state.logger.InfoTag("模型", "模型后端就绪: %s/%s", state.config.Model.Provider, state.config.Model.ModelName)
	return nil
}

func setupEventHandlersStep(_ context.Context, state *appState) error {
	var audit *platformstorage.AuditRepository
	if state.storeReady {
		audit = platformstorage.NewAuditRepository(platformstorage.GetDB())
	}

	if err := eventbus.SetupEventHandlers(audit, state.cache, state.logger); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:setup-handlers", "failed to setup event handlers", err)
	}
	return nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	var repo *platformstorage.AnalysisRepository
	if state.storeReady {
		repo = platformstorage.NewAnalysisRepository(platformstorage.GetDB())
	}

	recordsService, err := httprecords.NewService(repo, state.cache, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "records:new-service", "failed to create records service", err)
	}

	analyzeService, err := httpanalyze.NewService(state.assessor, state.imagePipeline, &config.Upload, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "analyze:new-service", "failed to create analyze service", err)
	}

	webapiService, err := httpwebapi.NewService(config, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}

	if err := recordsService.Register(groupCtx, apiGroup); err != nil {
		return nil, err
	}
	if err := analyzeService.Register(groupCtx, apiGroup); err != nil {
		return nil, err
	}
	if err := webapiService.Register(groupCtx, apiGroup); err != nil {
		return nil, err
	}
	webapiService.RegisterPublic(router)

	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://localhost:%d", config.Server.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("引导", "收到系统信号 %v，正在进行资源清理", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("服务关闭超时")
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return timeoutErr
	}
	return nil
}
