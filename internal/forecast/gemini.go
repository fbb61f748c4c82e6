package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"demandplanner/internal/config"
	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

// ContentGenerator is the part of the genai client the generator calls.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator asks a Gemini model for per-model forecast values and a
// short written analysis
type GeminiGenerator struct {
	models        ContentGenerator
	forecastModel string
	insightModel  string
	historyWindow int
	logger        *slog.Logger
}

// NewGeminiGenerator creates a generator backed by the Gemini API
func NewGeminiGenerator(ctx context.Context, cfg config.ForecastConfig, logger *slog.Logger) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apierrors.NewConfigError("a forecast API key is required for the gemini provider", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return NewGeneratorWithModels(client.Models, cfg, logger), nil
}

// NewGeneratorWithModels wraps an existing content generator
func NewGeneratorWithModels(models ContentGenerator, cfg config.ForecastConfig, logger *slog.Logger) *GeminiGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &GeminiGenerator{
		models:        models,
		forecastModel: cfg.ForecastModel,
		insightModel:  cfg.InsightModel,
		historyWindow: cfg.HistoryWindow,
		logger:        logger.With(slog.String("component", "forecast_generator")),
	}
	if g.forecastModel == "" {
		g.forecastModel = config.DefaultForecastModel
	}
	if g.insightModel == "" {
		g.insightModel = config.DefaultInsightModel
	}
	if g.historyWindow <= 0 {
		g.historyWindow = config.DefaultHistoryWindow
	}
	return g
}

// forecastSchema constrains the response to an array of forecast points
var forecastSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date":         {Type: genai.TypeString},
			"xgboost":      {Type: genai.TypeNumber},
			"randomForest": {Type: genai.TypeNumber},
			"lightGbm":     {Type: genai.TypeNumber},
			"dnn":          {Type: genai.TypeNumber},
			"consensus":    {Type: genai.TypeNumber},
		},
		Required: []string{"date", "xgboost", "randomForest", "lightGbm", "dnn", "consensus"},
	},
}

// Generate requests a forecast. A transport failure is an error; a response
// that does not decode is logged and yields an empty series.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (domain.Series, error) {
	prompt, err := ForecastPrompt(req, g.historyWindow)
	if err != nil {
		return nil, err
	}

	resp, err := g.models.GenerateContent(ctx, g.forecastModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   forecastSchema,
	})
	if err != nil {
		return nil, apierrors.NewUpstreamError("forecast generation failed", err).
			WithContext("model", g.forecastModel)
	}

	series, err := ParseForecast(responseText(resp))
	if err != nil {
		g.logger.WarnContext(ctx, "failed to parse forecast response",
			slog.String("model", g.forecastModel),
			slog.String("error", err.Error()))
		return domain.Series{}, nil
	}

	g.logger.InfoContext(ctx, "forecast generated",
		slog.String("model", g.forecastModel),
		slog.Int("history_records", len(RecentHistory(req.History, g.historyWindow))),
		slog.Int("points", len(series)))
	return series, nil
}

// Analyze asks for business insights on forecast
func (g *GeminiGenerator) Analyze(ctx context.Context, forecast domain.Series) (string, error) {
	prompt, err := InsightPrompt(forecast)
	if err != nil {
		return "", err
	}

	resp, err := g.models.GenerateContent(ctx, g.insightModel, genai.Text(prompt), nil)
	if err != nil {
		return "", apierrors.NewUpstreamError("insight generation failed", err).
			WithContext("model", g.insightModel)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return NoInsights, nil
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// NewGenerator selects the generator for the configured provider
func NewGenerator(ctx context.Context, cfg config.ForecastConfig, logger *slog.Logger) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderNone:
		return NoopGenerator{}, nil
	case config.ProviderGemini, "":
		return NewGeminiGenerator(ctx, cfg, logger)
	}
	return nil, apierrors.NewConfigError(fmt.Sprintf("unknown forecast provider %q", cfg.Provider), nil)
}
