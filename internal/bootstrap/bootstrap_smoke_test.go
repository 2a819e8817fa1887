package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dermalens-server-go/internal/utils"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `server:
  ip: "127.0.0.1"
  port: 18080
log:
  log_level: "info"
  log_dir: "` + filepath.Join(dir, "logs") + `"
  log_file: "server.log"
database:
  path: "` + filepath.Join(dir, "test.db") + `"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestSmokeConfigAndLogging(t *testing.T) {
	t.Setenv("DERMALENS_CONFIG_PATH", writeTestConfig(t))

	state := &appState{}
	steps := []initStep{
		InitGraph()[0], // config:load
		InitGraph()[1], // logging:init
		InitGraph()[2], // observability:setup
	}
	if err := executeInitSteps(context.Background(), steps, state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.config.Server.Port != 18080 {
		t.Fatalf("config file not applied, port = %d", state.config.Server.Port)
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	defer state.logger.Close()
	defer state.observabilityShutdown(context.Background())
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init",
		"observability:setup",
		"storage:init-database",
		"cache:init",
		"model:init-provider",
		"events:setup-handlers",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestInitGraphDependenciesSatisfied(t *testing.T) {
	completed := map[string]bool{}
	for _, step := range InitGraph() {
		for _, dep := range step.DependsOn {
			if !completed[dep] {
				t.Fatalf("step %s depends on %s which is not completed yet", step.ID, dep)
			}
		}
		completed[step.ID] = true
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logCfg := &utils.LogCfg{
		LogLevel: "info",
		LogDir:   tmp,
		LogFile:  "graph.log",
	}
	logger, err := utils.NewLogger(logCfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logBootstrapGraph(InitGraph(), logger)
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, logCfg.LogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "初始化依赖关系概览") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	for _, name := range []string{"加载配置", "初始化模型后端", "注册事件处理器"} {
		if !strings.Contains(content, name) {
			t.Fatalf("expected graph output to contain %q, got: %s", name, content)
		}
	}
}
