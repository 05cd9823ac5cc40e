package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniarena/physics"
)

func newTestManager(t *testing.T) *RoomManager {
	t.Helper()
	cfg := DefaultConfig()
	rm := NewRoomManager(cfg, physics.NewEngine(cfg.Physics))
	t.Cleanup(rm.Shutdown)
	return rm
}

func TestAdminConfigGetAndPost(t *testing.T) {
	rm := newTestManager(t)

	rec := httptest.NewRecorder()
	rm.HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config?room=r1",
		strings.NewReader(`{"playerSpeed": 7.5, "coneAngle": 45}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	rm.HandleAdminConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/config?room=r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 7.5, got["playerSpeed"])
	assert.Equal(t, 45.0, got["coneAngle"])
	assert.Equal(t, 3.0, got["attackRange"], "untouched fields keep their values")
}

func TestAdminConfigRejectsBadRequests(t *testing.T) {
	rm := newTestManager(t)

	rec := httptest.NewRecorder()
	rm.HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	rm.HandleAdminConfig(rec, httptest.NewRequest(http.MethodDelete, "/admin/config", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rm := newTestManager(t)

	rec := httptest.NewRecorder()
	rm.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics?room=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := rm.GetOrCreateRoom("room-1")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	rm.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Room    string         `json:"room"`
		Metrics map[string]any `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "room-1", got.Room)
	assert.Contains(t, got.Metrics, "boundary_clamped")
}

func TestGetOrCreateRoomReturnsSameRoom(t *testing.T) {
	rm := newTestManager(t)
	a, err := rm.GetOrCreateRoom("x")
	require.NoError(t, err)
	b, err := rm.GetOrCreateRoom("x")
	require.NoError(t, err)
	assert.Same(t, a, b)
}
