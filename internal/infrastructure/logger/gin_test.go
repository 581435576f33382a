package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddleware_LogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	router := gin.New()
	router.Use(GinMiddleware(logger))
	router.GET("/api/suppliers/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/suppliers/status", nil)
	router.ServeHTTP(w, req)

	entries := recorded.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "HTTP Request", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "/api/suppliers/status", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestGinMiddleware_WarnsOnClientError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	router := gin.New()
	router.Use(GinMiddleware(logger))
	router.POST("/api/suppliers/:id/sync", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/suppliers/denon/sync", nil)
	router.ServeHTTP(w, req)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestRecovery_LogsPanicAndReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/boom", func(c *gin.Context) {
		panic("adapter blew up")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Panic recovered", entries[0].Message)
}

func TestGetGinLogger_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	logger := GetGinLogger(c)
	require.NotNil(t, logger)
	logger.Info("must not panic")
}
