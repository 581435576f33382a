package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/AudicoSA/audico-sync/internal/application/sync"
	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
)

func healthEngine(adapters map[string]*stubAdapter, staleAfter time.Duration) *gin.Engine {
	registry := appsync.NewRegistry()
	for code, adapter := range adapters {
		registry.Register(code, adapter)
	}
	h := NewSystemHandler(appsync.NewService(registry, nil), staleAfter)

	engine := gin.New()
	engine.GET("/healthz", h.Health)
	return engine
}

func getHealth(t *testing.T, engine *gin.Engine) HealthResponse {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var report HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	return report
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("recently synced suppliers are healthy", func(t *testing.T) {
		lastSync := time.Now().Add(-time.Hour)
		snapshot := idleSnapshot("denon")
		snapshot.LastSyncAt = &lastSync

		report := getHealth(t, healthEngine(map[string]*stubAdapter{
			"denon": {snapshot: snapshot},
		}, 48*time.Hour))

		assert.Equal(t, "ok", report.Status)
		require.Len(t, report.Suppliers, 1)
		assert.False(t, report.Suppliers[0].Degraded)
		assert.NotEmpty(t, report.Suppliers[0].LastSyncAge)
	})

	t.Run("stale supplier degrades the report", func(t *testing.T) {
		lastSync := time.Now().Add(-72 * time.Hour)
		snapshot := idleSnapshot("denon")
		snapshot.LastSyncAt = &lastSync

		report := getHealth(t, healthEngine(map[string]*stubAdapter{
			"denon": {snapshot: snapshot},
		}, 48*time.Hour))

		assert.Equal(t, "degraded", report.Status)
		assert.True(t, report.Suppliers[0].Degraded)
	})

	t.Run("never synced supplier is degraded", func(t *testing.T) {
		report := getHealth(t, healthEngine(map[string]*stubAdapter{
			"denon": {snapshot: idleSnapshot("denon")},
		}, 48*time.Hour))

		assert.Equal(t, "degraded", report.Status)
	})

	t.Run("errored supplier is degraded even when fresh", func(t *testing.T) {
		lastSync := time.Now().Add(-time.Hour)
		snapshot := idleSnapshot("denon")
		snapshot.LastSyncAt = &lastSync
		snapshot.Status = syncdomain.SupplierError

		report := getHealth(t, healthEngine(map[string]*stubAdapter{
			"denon": {snapshot: snapshot},
		}, 48*time.Hour))

		assert.True(t, report.Suppliers[0].Degraded)
	})
}
