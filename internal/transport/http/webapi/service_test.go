package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dermalens-server-go/internal/platform/config"
	"dermalens-server-go/internal/utils"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	service, err := NewService(config.DefaultConfig(), logger)
	require.NoError(t, err)

	engine := gin.New()
	require.NoError(t, service.Register(context.Background(), engine.Group("/api")))
	service.RegisterPublic(engine)
	return engine
}

func TestHealth(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestCommonConditions(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/common-conditions", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success    bool `json:"success"`
		Conditions []struct {
			ID       string   `json:"id"`
			Name     string   `json:"name"`
			Symptoms []string `json:"symptoms"`
			Short    string   `json:"short"`
		} `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Conditions, 10)
	for _, c := range resp.Conditions {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Symptoms)
		assert.NotEmpty(t, c.Short)
	}
}

func TestSystemStatus(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Status  map[string]any `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Status, "goroutines")
	assert.Contains(t, resp.Status, "go_version")
}
