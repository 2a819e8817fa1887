package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "debug",
		LogDir:   tmpDir,
		LogFile:  "test.log",
	})

	assert.NoError(t, err)
	assert.NotNil(t, logger)

	err = logger.Close()
	assert.NoError(t, err)
}

func TestLogger_Info(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "info.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	testMsg := "test info message"
	logger.Info("%s", testMsg)

	time.Sleep(10 * time.Millisecond)

	logFile := filepath.Join(tmpDir, "info.log")
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), testMsg)
}

func TestLogger_InfoTag(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "tag.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.InfoTag("模型", "第 %d 次调用失败", 2)

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "tag.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[模型] 第 2 次调用失败")
}

func TestLogger_DebugSuppressedAtInfoLevel(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewLogger(&LogCfg{
		LogLevel: "info",
		LogDir:   tmpDir,
		LogFile:  "debug.log",
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("should not appear")

	time.Sleep(10 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(tmpDir, "debug.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "should not appear")
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[引导] 服务已启动", FormatLog("引导", "服务已启动"))
	assert.Equal(t, "[已有标签] 保持原样", FormatLog("引导", "[已有标签] 保持原样"))
	assert.Equal(t, "无标签", FormatLog("", "无标签"))
}
