package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandplanner/pkg/contracts/domain"
)

func TestParseForecast(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    domain.Series
		wantErr bool
	}{
		{
			name: "plain array",
			text: `[{"date":"2024-04-01","xgboost":1,"randomForest":2,"lightGbm":3,"dnn":4,"consensus":2.5}]`,
			want: domain.Series{{Date: "2024-04-01", XGBoost: domain.Float(1), RandomForest: domain.Float(2), LightGBM: domain.Float(3), DNN: domain.Float(4), Consensus: domain.Float(2.5)}},
		},
		{
			name: "fenced with missing fields",
			text: "```json\n[{\"date\":\"2024-05-01T00:00:00Z\",\"consensus\":7}]\n```",
			want: domain.Series{{Date: "2024-05-01", Consensus: domain.Float(7)}},
		},
		{
			name: "actual is dropped",
			text: `[{"date":"2024-06","actual":99,"dnn":5}]`,
			want: domain.Series{{Date: "2024-06-01", DNN: domain.Float(5)}},
		},
		{name: "empty array", text: "[]", want: domain.Series{}},
		{name: "empty text", text: "  ", wantErr: true},
		{name: "object instead of array", text: `{"date":"2024-04-01"}`, wantErr: true},
		{name: "prose", text: "The forecast looks strong.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseForecast(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
