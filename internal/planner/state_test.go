package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandplanner/internal/dataprocessing"
	apierrors "demandplanner/internal/errors"
	"demandplanner/internal/shared/testutil"
	"demandplanner/internal/warehouse"
	"demandplanner/pkg/contracts/domain"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func loaded(t *testing.T) *State {
	t.Helper()
	s := New(warehouse.Settings{}, t0)

	var err error
	s, err = s.WithUpload(dataprocessing.ParseText(testutil.SalesCSV, domain.RecordKindSales), "sales.csv", t0)
	require.NoError(t, err)
	s, err = s.WithUpload(dataprocessing.ParseText(testutil.ItemsCSV, domain.RecordKindItems), "items.csv", t0)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := New(warehouse.Settings{ProjectID: "p"}, t0)

	assert.Equal(t, domain.AllSegments(), s.Filter())
	assert.Equal(t, domain.DefaultDrivers(), s.Drivers())
	assert.Equal(t, "p", s.Warehouse().ProjectID)
	assert.Zero(t, s.Version())
	_, ok := s.Result()
	assert.False(t, ok)
}

func TestWithUpload_DoesNotMutateReceiver(t *testing.T) {
	base := New(warehouse.Settings{}, t0)
	upload := dataprocessing.ParseText(testutil.SalesCSV, domain.RecordKindSales)

	next, err := base.WithUpload(upload, "sales.csv", t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Empty(t, base.Sales())
	assert.Empty(t, base.Uploads())
	assert.Len(t, next.Sales(), len(upload.Sales))
	assert.Equal(t, UploadInfo{FileName: "sales.csv", Records: len(upload.Sales), LoadedAt: t0.Add(time.Minute)}, next.Uploads()[domain.RecordKindSales])
	assert.Equal(t, uint64(1), next.Version())

	upload.Sales[0].Quantity = 9999
	assert.NotEqual(t, 9999.0, next.Sales()[0].Quantity, "state keeps its own copy")
}

func TestWithUpload_SalesClearsResult(t *testing.T) {
	s := loaded(t).WithResult(Result{Source: domain.DataSourceSimulation, Merged: domain.Series{{Date: "2024-01-01"}}}, t0)
	_, ok := s.Result()
	require.True(t, ok)

	promos, err := s.WithUpload(dataprocessing.ParseText(testutil.PromotionsCSV, domain.RecordKindPromotions), "p.csv", t0)
	require.NoError(t, err)
	_, ok = promos.Result()
	assert.True(t, ok, "promotions keep the result")

	sales, err := promos.WithUpload(dataprocessing.ParseText(testutil.SalesCSV, domain.RecordKindSales), "s.csv", t0)
	require.NoError(t, err)
	_, ok = sales.Result()
	assert.False(t, ok, "new sales drop the result")
}

func TestWithUpload_Invalid(t *testing.T) {
	_, err := New(warehouse.Settings{}, t0).WithUpload(&dataprocessing.Upload{Kind: "orders"}, "x", t0)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))

	_, err = New(warehouse.Settings{}, t0).WithUpload(nil, "x", t0)
	assert.Error(t, err)
}

func TestClearUpload(t *testing.T) {
	s := loaded(t).WithFilter(domain.SegmentFilter{Category: "Beverages"}, t0)

	cleared, err := s.ClearUpload(domain.RecordKindItems, t0)
	require.NoError(t, err)
	assert.Empty(t, cleared.Items())
	assert.Equal(t, domain.AllSegments(), cleared.Filter())
	assert.NotContains(t, cleared.Uploads(), domain.RecordKindItems)
	assert.NotEmpty(t, s.Items(), "receiver untouched")

	_, err = s.ClearUpload("orders", t0)
	assert.Error(t, err)
}

func TestWithFilter_Reconciles(t *testing.T) {
	s := loaded(t)

	f := s.WithFilter(domain.SegmentFilter{Category: "Snacks", Brand: "Fizz", SKU: "SKU-1"}, t0).Filter()
	assert.Equal(t, domain.SegmentFilter{Category: "Snacks", Brand: domain.Wildcard, SKU: domain.Wildcard}, f)

	f = s.WithFilter(domain.SegmentFilter{Category: "", Brand: "ALL", SKU: "SKU-2"}, t0).Filter()
	assert.Equal(t, domain.SegmentFilter{Category: domain.Wildcard, Brand: domain.Wildcard, SKU: "SKU-2"}, f)
}

func TestWithDriver(t *testing.T) {
	s := New(warehouse.Settings{}, t0)

	tests := []struct {
		name     string
		id       string
		value    float64
		want     float64
		wantType apierrors.ErrorType
	}{
		{name: "on step", id: "promo", value: 25, want: 25},
		{name: "snapped to step", id: "promo", value: 27, want: 25},
		{name: "negative", id: "price", value: -20, want: -20},
		{name: "above max", id: "season", value: 31, wantType: apierrors.ErrTypeValidation},
		{name: "unknown", id: "weather", value: 1, wantType: apierrors.ErrTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.WithDriver(tt.id, tt.value, t0)
			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, apierrors.IsType(err, tt.wantType))
				return
			}
			require.NoError(t, err)
			d := n.Drivers()[domain.FindDriver(n.Drivers(), tt.id)]
			assert.Equal(t, tt.want, d.Value)
			assert.NoError(t, d.Validate())
			assert.Equal(t, domain.DefaultDrivers(), s.Drivers(), "receiver untouched")
		})
	}
}

func TestResetDrivers(t *testing.T) {
	s, err := New(warehouse.Settings{}, t0).WithDriver("promo", 50, t0)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultDrivers(), s.ResetDrivers(t0).Drivers())
}

func TestUsesWarehouse(t *testing.T) {
	s := New(warehouse.Settings{}, t0)
	assert.False(t, s.UsesWarehouse())

	assert.False(t, s.WithWarehouse(warehouse.Settings{Enabled: true}, t0).UsesWarehouse(), "token required")
	assert.False(t, s.WithWarehouse(warehouse.Settings{AccessToken: "t"}, t0).UsesWarehouse(), "must be enabled")
	assert.True(t, s.WithWarehouse(warehouse.Settings{Enabled: true, AccessToken: "t"}, t0).UsesWarehouse())
}

func TestWithResult_Copies(t *testing.T) {
	merged := domain.Series{{Date: "2024-01-01", Actual: domain.Float(1)}}
	s := New(warehouse.Settings{}, t0).WithResult(Result{Merged: merged, Insights: "ok"}, t0)

	*merged[0].Actual = 42

	r, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 1.0, *r.Merged[0].Actual)

	*r.Merged[0].Actual = 7
	again, _ := s.Result()
	assert.Equal(t, 1.0, *again.Merged[0].Actual)
}
