package warehouse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandplanner/internal/config"
	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

type capturedQuery struct {
	Path          string
	Authorization string
	Query         string
	UseLegacySQL  *bool
}

type fakeBigQuery struct {
	mu       sync.Mutex
	requests []capturedQuery
	status   int
	body     string
}

func (f *fakeBigQuery) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query        string `json:"query"`
		UseLegacySQL *bool  `json:"useLegacySql"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.requests = append(f.requests, capturedQuery{
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Query:         req.Query,
		UseLegacySQL:  req.UseLegacySQL,
	})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeBigQuery) last(t *testing.T) capturedQuery {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

const forecastResponse = `{
  "kind": "bigquery#queryResponse",
  "jobComplete": true,
  "schema": {"fields": [
    {"name": "date", "type": "DATE"},
    {"name": "Actual_Sales", "type": "FLOAT"},
    {"name": "xgboost_pred", "type": "FLOAT"},
    {"name": "RandomForest", "type": "NUMERIC"},
    {"name": "region", "type": "STRING"}
  ]},
  "rows": [
    {"f": [{"v": "2024-01-01"}, {"v": "100"}, {"v": null}, {"v": "98.5"}, {"v": "north"}]},
    {"f": [{"v": "2024-02-01"}, {"v": null}, {"v": "110.25"}, {"v": "not-a-number"}, {"v": "north"}]}
  ]
}`

func newTestClient(t *testing.T, fake *fakeBigQuery, rowLimit int) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewClient(config.WarehouseConfig{
		Endpoint: srv.URL + "/bigquery/v2/",
		RowLimit: rowLimit,
		Timeout:  5 * time.Second,
	}, nil)
}

func testSettings() Settings {
	return Settings{
		Enabled:     true,
		ProjectID:   "acme-analytics",
		DatasetID:   "planning",
		TableID:     "forecasts",
		AccessToken: "ya29.test-token",
	}
}

func TestClient_FetchSeries(t *testing.T) {
	fake := &fakeBigQuery{status: http.StatusOK, body: forecastResponse}
	client := newTestClient(t, fake, 0)

	series, err := client.FetchSeries(context.Background(), testSettings())
	require.NoError(t, err)

	expected := domain.Series{
		{Date: "2024-01-01", Actual: domain.Float(100), RandomForest: domain.Float(98.5)},
		{Date: "2024-02-01", XGBoost: domain.Float(110.25)},
	}
	assert.Equal(t, expected, series)

	req := fake.last(t)
	assert.Equal(t, "/bigquery/v2/projects/acme-analytics/queries", req.Path)
	assert.Equal(t, "Bearer ya29.test-token", req.Authorization)
	assert.Equal(t, "SELECT * FROM `acme-analytics.planning.forecasts` ORDER BY date ASC LIMIT 1000", req.Query)
	require.NotNil(t, req.UseLegacySQL)
	assert.False(t, *req.UseLegacySQL)
}

func TestClient_Query_ConvertsCellsBySchema(t *testing.T) {
	fake := &fakeBigQuery{status: http.StatusOK, body: forecastResponse}
	client := newTestClient(t, fake, 25)

	rs, err := client.Query(context.Background(), testSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "Actual_Sales", "xgboost_pred", "RandomForest", "region"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, domain.StringScalar("2024-01-01"), rs.Rows[0]["date"])
	assert.Equal(t, domain.NumberScalar(100), rs.Rows[0]["Actual_Sales"])
	assert.True(t, rs.Rows[0]["xgboost_pred"].IsNull())
	assert.Equal(t, domain.StringScalar("not-a-number"), rs.Rows[1]["RandomForest"])
	assert.Equal(t, domain.StringScalar("north"), rs.Rows[1]["region"])

	assert.True(t, strings.HasSuffix(fake.last(t).Query, "LIMIT 25"))
}

func TestClient_FetchSeries_EpochTimestamps(t *testing.T) {
	fake := &fakeBigQuery{status: http.StatusOK, body: `{
		"jobComplete": true,
		"schema": {"fields": [{"name": "ds", "type": "TIMESTAMP"}, {"name": "yhat", "type": "FLOAT"}]},
		"rows": [{"f": [{"v": "1.7092512E9"}, {"v": "142.5"}]}]
	}`}
	client := newTestClient(t, fake, 0)

	series, err := client.FetchSeries(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.Series{{Date: "2024-03-01", Consensus: domain.Float(142.5)}}, series)
}

func TestClient_FetchSeries_EmptyResult(t *testing.T) {
	fake := &fakeBigQuery{status: http.StatusOK, body: `{
		"jobComplete": true,
		"schema": {"fields": [{"name": "date", "type": "DATE"}]},
		"totalRows": "0"
	}`}
	client := newTestClient(t, fake, 0)

	series, err := client.FetchSeries(context.Background(), testSettings())
	require.NoError(t, err)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestClient_TestConnection(t *testing.T) {
	fake := &fakeBigQuery{status: http.StatusOK, body: forecastResponse}
	client := newTestClient(t, fake, 0)

	columns, err := client.TestConnection(context.Background(), testSettings())
	require.NoError(t, err)
	assert.Contains(t, columns, "date")
	assert.Equal(t, "SELECT * FROM `acme-analytics.planning.forecasts` LIMIT 1", fake.last(t).Query)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		wantType apierrors.ErrorType
		wantMsg  string
		wantKind string
	}{
		{"expired token", http.StatusUnauthorized, "Request had invalid authentication credentials.", apierrors.ErrTypeAuthentication, MsgCredentialExpired, "credential_expired"},
		{"missing table", http.StatusNotFound, "Not found: Table acme-analytics:planning.forecasts", apierrors.ErrTypeNotFound, MsgTableNotFound, "table_not_found"},
		{"no permission", http.StatusForbidden, "Access Denied: Project acme-analytics", apierrors.ErrTypePermission, MsgPermissionDenied, "permission_denied"},
		{"bad query", http.StatusBadRequest, "Unrecognized name: date", apierrors.ErrTypeUpstream, "Unrecognized name: date", "query_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]interface{}{
				"error": map[string]interface{}{"code": tt.status, "message": tt.message},
			})
			require.NoError(t, err)
			client := newTestClient(t, &fakeBigQuery{status: tt.status, body: string(body)}, 0)

			_, err = client.FetchSeries(context.Background(), testSettings())
			require.Error(t, err)

			appErr, ok := apierrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.Equal(t, tt.wantKind, ErrorKind(err))
		})
	}
}

func TestClient_JobNotComplete(t *testing.T) {
	client := newTestClient(t, &fakeBigQuery{status: http.StatusOK, body: `{"jobComplete": false, "jobReference": {"jobId": "job_1"}}`}, 0)

	_, err := client.Query(context.Background(), testSettings())
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeUpstream))
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/"
	srv.Close()

	client := NewClient(config.WarehouseConfig{Endpoint: endpoint, Timeout: time.Second}, nil)
	_, err := client.Query(context.Background(), testSettings())
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNetwork))
	assert.Equal(t, "unreachable", ErrorKind(err))
}

func TestClient_RejectsInvalidSettingsWithoutCalling(t *testing.T) {
	fake := &fakeBigQuery{status: http.StatusOK, body: forecastResponse}
	client := newTestClient(t, fake, 0)

	s := testSettings()
	s.TableID = "forecasts`; DROP TABLE x; --"
	_, err := client.Query(context.Background(), s)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
	assert.Empty(t, fake.requests)
}
