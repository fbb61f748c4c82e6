package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandplanner/internal/config"
	"demandplanner/internal/infrastructure"
	"demandplanner/internal/shared/testutil"
	api "demandplanner/pkg/contracts/api/v1"
	"demandplanner/pkg/contracts/domain"
	"demandplanner/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Logging.Level = "error"
	cfg.Paths = config.PathsConfig{
		DataDir:    filepath.Join(base, "data"),
		ReportsDir: filepath.Join(base, "data", "reports"),
		LogsDir:    filepath.Join(base, "logs"),
	}
	cfg.Forecast.Provider = config.ProviderNone
	return cfg
}

func newTestApplication(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	app, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		app.Hub.Stop()
		_ = app.OTelProviders.Shutdown(context.Background())
	})
	return app
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApplication(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApplication(t, cfg)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.PlanningService)
	assert.NotNil(t, app.HealthService)
	assert.Equal(t, ":0", app.Server.Addr)

	info, err := os.Stat(cfg.Paths.ReportsDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewApplication_MissingAPIKeyFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forecast.Provider = config.ProviderGemini
	cfg.Forecast.APIKey = ""

	app := newTestApplication(t, cfg)
	require.NotNil(t, app.PlanningService)

	rec := do(t, app.Router, http.MethodPost, "/api/planning/uploads/sales?filename=sales.csv", "text/csv", testutil.SalesCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, app.Router, http.MethodPost, "/api/planning/forecast", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestApplication_PlanningFlow(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApplication(t, cfg)
	router := app.Router

	rec := do(t, router, http.MethodPost, "/api/planning/forecast", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/planning/uploads/sales?filename=sales.csv", "text/csv", testutil.SalesCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodPost, "/api/planning/uploads/items?filename=items.csv", "text/csv", testutil.ItemsCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPut, "/api/planning/segments", "application/json", `{"category":"Snacks"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var segments api.SegmentOptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &segments))
	assert.Equal(t, "Snacks", segments.Selected.Category)
	assert.Equal(t, []string{"Crunch"}, segments.Brands)

	rec = do(t, router, http.MethodPost, "/api/planning/forecast", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result api.ForecastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.DataSourceSimulation, result.Source)
	// only SKU-2 sales: 2024-01-01 and 2024-02-01
	require.Len(t, result.Series, 2)
	assert.Equal(t, 4.0, *result.Series[0].Actual)

	rec = do(t, router, http.MethodGet, "/api/planning/export?format=csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "date,actual,xgboost,randomForest,lightGbm,dnn,consensus\n2024-01-01,4,,,,,\n2024-02-01,5,,,,,\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "demand_forecast_SIMULATION_")

	archived, err := filepath.Glob(filepath.Join(cfg.Paths.ReportsDir, "demand_forecast_SIMULATION_*.csv"))
	require.NoError(t, err)
	require.Len(t, archived, 1)

	rec = do(t, router, http.MethodGet, "/api/reports", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reports api.ReportsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports.Reports, 1)
	assert.Equal(t, filepath.Base(archived[0]), reports.Reports[0].Name)

	rec = do(t, router, http.MethodGet, "/api/reports/"+reports.Reports[0].Name, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "date,actual,"))
}

func TestApplication_Middleware(t *testing.T) {
	app := newTestApplication(t, testConfig(t))

	t.Run("json routes reject other media types", func(t *testing.T) {
		rec := do(t, app.Router, http.MethodPut, "/api/planning/segments", "text/plain", "category=x")
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("unknown route is a problem document", func(t *testing.T) {
		rec := do(t, app.Router, http.MethodGet, "/api/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := do(t, app.Router, http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	app := newTestApplication(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApplication_EventsStream(t *testing.T) {
	app := newTestApplication(t, testConfig(t))
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() events.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg events.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	assert.Equal(t, events.MessageTypeConnect, read().Type)
	require.Eventually(t, func() bool { return app.Hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/planning/uploads/sales", strings.NewReader(testutil.SalesCSV))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-Request-ID", "upload-1")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	msg := read()
	assert.Equal(t, events.MessageTypeStateChanged, msg.Type)
	assert.NotEmpty(t, msg.TraceID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "upload", data["change"])
	assert.Equal(t, map[string]interface{}{"sales": float64(5)}, data["records"])
}
