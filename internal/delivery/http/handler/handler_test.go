package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-station-monitor/internal/calibration"
	"fuel-station-monitor/internal/diagnostics"
	"fuel-station-monitor/internal/domain/station"
	"fuel-station-monitor/internal/ingestion"
	"fuel-station-monitor/internal/liveness"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func serve(t *testing.T, register func(*gin.RouterGroup), method, path string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	router := gin.New()
	register(router.Group("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestDiagnosticsHandler_GetHistory(t *testing.T) {
	registry := diagnostics.NewRegistry()
	registry.Record("D00012", diagnostics.GSMStatus{Status: "OK", Operator: "Viettel"})
	h := NewDiagnosticsHandler(registry)

	w, env := serve(t, h.RegisterRoutes, http.MethodGet, "/api/v1/diagnostics/D12/gsm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history []diagnostics.GSMStatus
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "Viettel", history[0].Operator)
}

func TestDiagnosticsHandler_Errors(t *testing.T) {
	registry := diagnostics.NewRegistry()
	registry.Record("T00003", diagnostics.DeviceError{Message: "probe fault"})
	h := NewDiagnosticsHandler(registry)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"bad device", "/api/v1/diagnostics/X1/gsm", http.StatusBadRequest},
		{"unknown kind", "/api/v1/diagnostics/T3/battery", http.StatusBadRequest},
		{"unknown device", "/api/v1/diagnostics/D9/gsm", http.StatusNotFound},
		{"known device", "/api/v1/diagnostics/T00003/errors", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := serve(t, h.RegisterRoutes, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

type fakeSubscriptions struct {
	added   []ingestion.DeviceRef
	removed []ingestion.DeviceRef
	err     error
}

func (f *fakeSubscriptions) AddDevice(ref ingestion.DeviceRef) error {
	f.added = append(f.added, ref)
	return f.err
}

func (f *fakeSubscriptions) RemoveDevice(ref ingestion.DeviceRef) error {
	f.removed = append(f.removed, ref)
	return f.err
}

func (f *fakeSubscriptions) DeviceTopics(ref ingestion.DeviceRef) ([]string, error) {
	scheme := ingestion.NewTopicScheme("duc/conn_status")
	telemetry, err := scheme.TelemetryTopic(ref.Class, ref.Address)
	if err != nil {
		return nil, err
	}
	conn, err := scheme.ConnectionTopic(ref.Class, ref.Address)
	if err != nil {
		return nil, err
	}
	return []string{telemetry, conn}, nil
}

func (f *fakeSubscriptions) Topics() []string { return []string{"S00001"} }

func TestSubscriptionHandler_AddDevice(t *testing.T) {
	subs := &fakeSubscriptions{}
	h := NewSubscriptionHandler(subs)

	w, env := serve(t, h.RegisterRoutes, http.MethodPost, "/api/v1/subscriptions", []byte(`{"class":"tank","address":"7"}`))
	require.Equal(t, http.StatusCreated, w.Code, env.Error)

	require.Len(t, subs.added, 1)
	assert.Equal(t, ingestion.DeviceRef{Class: station.ClassTank, Address: "00007"}, subs.added[0])

	var resp SubscriptionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, []string{"T00007", "duc/conn_status/T00007"}, resp.Topics)
}

func TestSubscriptionHandler_Validation(t *testing.T) {
	subs := &fakeSubscriptions{}
	h := NewSubscriptionHandler(subs)

	for _, body := range []string{`{"class":"pump","address":"1"}`, `{"class":"tank","address":"12ab"}`, `{`} {
		w, _ := serve(t, h.RegisterRoutes, http.MethodPost, "/api/v1/subscriptions", []byte(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, subs.added)
}

func TestSubscriptionHandler_RemoveDeviceFailure(t *testing.T) {
	subs := &fakeSubscriptions{err: errors.New("broker gone")}
	h := NewSubscriptionHandler(subs)

	w, env := serve(t, h.RegisterRoutes, http.MethodDelete, "/api/v1/subscriptions/dispenser/12", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "broker rejected unsubscribe: broker gone", env.Error)
	assert.Equal(t, codeBrokerUnavailable, env.Code)
	require.Len(t, subs.removed, 1)
	assert.Equal(t, "00012", subs.removed[0].Address)
}

type fakeCache struct {
	cleared []string
}

func (f *fakeCache) Clear(address, tankID string) bool {
	f.cleared = append(f.cleared, address+"/"+tankID)
	return address == "00007" && tankID == "TK1"
}

func (f *fakeCache) ClearAll() int { return 3 }

func (f *fakeCache) Stats() calibration.CacheStats { return calibration.CacheStats{Entries: 3} }

func TestCalibrationHandler(t *testing.T) {
	cache := &fakeCache{}
	h := NewCalibrationHandler(cache)

	w, _ := serve(t, h.RegisterRoutes, http.MethodDelete, "/api/v1/calibration/cache/7/TK1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// same gauge index on another controller is a different tank
	w, _ = serve(t, h.RegisterRoutes, http.MethodDelete, "/api/v1/calibration/cache/8/TK1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = serve(t, h.RegisterRoutes, http.MethodDelete, "/api/v1/calibration/cache/abc/TK1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"00007/TK1", "00008/TK1"}, cache.cleared)

	w, env := serve(t, h.RegisterRoutes, http.MethodDelete, "/api/v1/calibration/cache", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":3}`, string(env.Data))

	w, env = serve(t, h.RegisterRoutes, http.MethodGet, "/api/v1/calibration/cache", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var stats calibration.CacheStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats.Entries)
}

type fakeLiveness []liveness.Entry

func (f fakeLiveness) Entries() []liveness.Entry { return f }

type fakeStats ingestion.IngestMetrics

func (f fakeStats) Snapshot() ingestion.IngestMetrics { return ingestion.IngestMetrics(f) }

func TestMonitorHandler(t *testing.T) {
	seen := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	h := NewMonitorHandler(
		fakeLiveness{{NozzleID: "D00001-A1", DispenserID: "d1", LastSeen: seen, ExpiresIn: 90 * time.Second}},
		fakeStats{MessagesReceived: 12},
	)

	w, env := serve(t, h.RegisterRoutes, http.MethodGet, "/api/v1/liveness", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []LivenessEntryResponse
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 90.0, entries[0].SecondsRemaining)

	w, env = serve(t, h.RegisterRoutes, http.MethodGet, "/api/v1/ingestion/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var m ingestion.IngestMetrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.EqualValues(t, 12, m.MessagesReceived)
}
