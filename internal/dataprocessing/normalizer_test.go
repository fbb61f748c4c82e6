package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandplanner/internal/shared/testutil"
	"demandplanner/pkg/contracts/domain"
)

func TestClassifyColumn(t *testing.T) {
	tests := []struct {
		column string
		want   domain.Field
		ok     bool
	}{
		{"date", domain.FieldDate, true},
		{"DS", domain.FieldDate, true},
		{"timestamp", domain.FieldDate, true},
		{"order_date", "", false},
		{"xgboost_pred", domain.FieldXGBoost, true},
		{"XGBoost_Forecast", domain.FieldXGBoost, true},
		{"random_forest", domain.FieldRandomForest, true},
		{"RandomForestPrediction", domain.FieldRandomForest, true},
		{"light_gbm_v2", domain.FieldLightGBM, true},
		{"lightgbm", domain.FieldLightGBM, true},
		{"dnn_output", domain.FieldDNN, true},
		{"consensus", domain.FieldConsensus, true},
		{"ensemble", domain.FieldConsensus, true},
		{"yhat", domain.FieldConsensus, true},
		{"sales_forecast", domain.FieldConsensus, true},
		{"actual_sales", domain.FieldActual, true},
		{"observed", domain.FieldActual, true},
		{"quantity", domain.FieldActual, true},
		{"qty", domain.FieldActual, true},
		{"y", domain.FieldActual, true},
		{"quantity_sold", "", false},
		{"forecast_date", "", false},
		{"sales_date", "", false},
		{"prediction_timestamp", "", false},
		{"store", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := ClassifyColumn(tt.column)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_DateLikeColumnDoesNotShadowConsensus(t *testing.T) {
	columns := []string{"date", "forecast_date", "consensus"}
	rows := []domain.Row{{
		"date":          domain.StringScalar("2024-05-01"),
		"forecast_date": domain.StringScalar("2024-04-15"),
		"consensus":     domain.NumberScalar(99),
	}}

	assert.Equal(t, domain.Series{
		{Date: "2024-05-01", Consensus: domain.Float(99)},
	}, Normalize(columns, rows))
}

func TestNormalize_ProphetStyle(t *testing.T) {
	got := Normalize([]string{"ds", "yhat"}, []domain.Row{{
		"ds":   domain.StringScalar("2024-03-01T00:00:00"),
		"yhat": domain.StringScalar("142.5"),
	}})

	require.Len(t, got, 1)
	assert.Equal(t, domain.ForecastPoint{Date: "2024-03-01", Consensus: domain.Float(142.5)}, got[0])
}

func TestNormalize_Values(t *testing.T) {
	columns := testutil.WarehouseColumns
	rows := []domain.Row{
		{
			"date":         domain.StringScalar("2024-01-01"),
			"actual_sales": domain.NumberScalar(100),
			"xgboost_pred": domain.StringScalar("101.5"),
			"rf_pred":      domain.StringScalar("99"),
			"lightgbm":     domain.Null,
			"dnn_output":   domain.StringScalar("n/a"),
			"ensemble":     domain.NumberScalar(0),
		},
		{
			"date":     domain.NumberScalar(1706745600),
			"lightgbm": domain.StringScalar(" 88 "),
		},
	}

	got := Normalize(columns, rows)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "2024-01-01", first.Date)
	assert.Equal(t, domain.Float(100), first.Actual)
	assert.Equal(t, domain.Float(101.5), first.XGBoost)
	assert.Nil(t, first.RandomForest, "rf_pred matches no rule")
	assert.Nil(t, first.LightGBM, "null stays absent")
	assert.Nil(t, first.DNN, "unparseable stays absent")
	assert.Equal(t, domain.Float(0), first.Consensus, "zero is a value")

	second := got[1]
	assert.Equal(t, "2024-02-01", second.Date, "epoch seconds become a UTC date")
	assert.Equal(t, domain.Float(88), second.LightGBM)
	assert.Nil(t, second.Actual)
}

func TestNormalize_KeepsOrderAndDuplicates(t *testing.T) {
	rows := []domain.Row{
		{"date": domain.StringScalar("2024-02-01"), "y": domain.NumberScalar(2)},
		{"date": domain.StringScalar("2024-01-01"), "y": domain.NumberScalar(1)},
		{"date": domain.StringScalar("2024-02-01"), "y": domain.NumberScalar(3)},
	}
	got := Normalize([]string{"date", "y"}, rows)

	dates := []string{got[0].Date, got[1].Date, got[2].Date}
	assert.Equal(t, []string{"2024-02-01", "2024-01-01", "2024-02-01"}, dates)
}

func TestNormalize_Empty(t *testing.T) {
	got := Normalize([]string{"date", "yhat"}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNormalize_LastPresentValueWins(t *testing.T) {
	got := Normalize([]string{"date", "prediction", "forecast"}, []domain.Row{
		{"date": domain.StringScalar("2024-01-01"), "prediction": domain.NumberScalar(1), "forecast": domain.NumberScalar(2)},
		{"date": domain.StringScalar("2024-01-02"), "prediction": domain.NumberScalar(1), "forecast": domain.Null},
	})
	assert.Equal(t, domain.Float(2), got[0].Consensus)
	assert.Equal(t, domain.Float(1), got[1].Consensus)
}
