package forecast

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"demandplanner/internal/config"
	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, cfg)
	resp, _ := args.Get(0).(*genai.GenerateContentResponse)
	return resp, args.Error(1)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func promptOf(contents []*genai.Content) string {
	var b strings.Builder
	for _, c := range contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func testConfig() config.ForecastConfig {
	return config.ForecastConfig{
		Provider:      config.ProviderGemini,
		ForecastModel: "forecast-model",
		InsightModel:  "insight-model",
		HistoryWindow: 2,
		HorizonMonths: 3,
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	models := new(MockContentGenerator)
	gen := NewGeneratorWithModels(models, testConfig(), nil)

	req := Request{
		History: []domain.SalesRecord{
			{Date: "2024-01-05", SKU: "SKU-OLD", Quantity: 1},
			{Date: "2024-02-10", SKU: "SKU-1", Quantity: 10},
			{Date: "2024-03-15", SKU: "SKU-2", Quantity: 15},
		},
		Drivers: domain.DefaultDrivers(),
		Horizon: 3,
	}

	models.On("GenerateContent", mock.Anything, "forecast-model", mock.MatchedBy(func(c []*genai.Content) bool {
		p := promptOf(c)
		return strings.Contains(p, "SKU-2") && !strings.Contains(p, "SKU-OLD") &&
			strings.Contains(p, "starting from 2024-04-01") && strings.Contains(p, "next 3 months")
	}), mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
		return cfg.ResponseMIMEType == "application/json" && cfg.ResponseSchema.Type == genai.TypeArray
	})).Return(textResponse(`[
		{"date":"2024-04-01","xgboost":11,"randomForest":10.5,"lightGbm":10.8,"dnn":10.2,"consensus":10.6},
		{"date":"2024-05","xgboost":12,"randomForest":11,"lightGbm":11.5,"dnn":11.1,"consensus":11.4}
	]`), nil)

	series, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-04-01", series[0].Date)
	assert.Equal(t, 10.6, *series[0].Consensus)
	assert.Equal(t, "2024-05-01", series[1].Date)
	assert.Nil(t, series[1].Actual)

	models.AssertExpectations(t)
}

func TestGeminiGenerator_Generate_UnparseableResponse(t *testing.T) {
	models := new(MockContentGenerator)
	gen := NewGeneratorWithModels(models, testConfig(), nil)

	models.On("GenerateContent", mock.Anything, "forecast-model", mock.Anything, mock.Anything).
		Return(textResponse("Sorry, I cannot help with that."), nil)

	series, err := gen.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestGeminiGenerator_Generate_TransportError(t *testing.T) {
	models := new(MockContentGenerator)
	gen := NewGeneratorWithModels(models, testConfig(), nil)

	cause := errors.New("connection reset")
	models.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, cause)

	_, err := gen.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeUpstream))
	assert.ErrorIs(t, err, cause)
}

func TestGeminiGenerator_Analyze(t *testing.T) {
	tests := []struct {
		name  string
		reply *genai.GenerateContentResponse
		want  string
	}{
		{"text reply", textResponse("  1. Demand grows in April.\n"), "1. Demand grows in April."},
		{"empty reply", textResponse(""), NoInsights},
		{"no candidates", &genai.GenerateContentResponse{}, NoInsights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := new(MockContentGenerator)
			gen := NewGeneratorWithModels(models, testConfig(), nil)

			forecast := domain.Series{{Date: "2024-04-01", Consensus: domain.Float(10)}}
			models.On("GenerateContent", mock.Anything, "insight-model", mock.MatchedBy(func(c []*genai.Content) bool {
				return strings.Contains(promptOf(c), `"consensus":10`)
			}), (*genai.GenerateContentConfig)(nil)).Return(tt.reply, nil)

			text, err := gen.Analyze(context.Background(), forecast)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
			models.AssertExpectations(t)
		})
	}
}

func TestNewGeneratorWithModels_Defaults(t *testing.T) {
	gen := NewGeneratorWithModels(new(MockContentGenerator), config.ForecastConfig{}, nil)

	assert.Equal(t, config.DefaultForecastModel, gen.forecastModel)
	assert.Equal(t, config.DefaultInsightModel, gen.insightModel)
	assert.Equal(t, config.DefaultHistoryWindow, gen.historyWindow)
}

func TestNewGenerator(t *testing.T) {
	gen, err := NewGenerator(context.Background(), config.ForecastConfig{Provider: config.ProviderNone}, nil)
	require.NoError(t, err)
	assert.IsType(t, NoopGenerator{}, gen)

	_, err = NewGenerator(context.Background(), config.ForecastConfig{Provider: config.ProviderGemini}, nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeConfig))

	_, err = NewGenerator(context.Background(), config.ForecastConfig{Provider: "oracle"}, nil)
	require.Error(t, err)
}

func TestNoopGenerator(t *testing.T) {
	var gen Generator = NoopGenerator{}

	series, err := gen.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, series)

	text, err := gen.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoInsights, text)
}
