package forecast

import (
	"context"

	"demandplanner/pkg/contracts/domain"
)

// NoInsights is returned when the model produced no analysis text
const NoInsights = "No insights available."

// Generator produces forecast series and prose insights. Implementations
// issue one request per call and never retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (domain.Series, error)
	Analyze(ctx context.Context, forecast domain.Series) (string, error)
}

// Request carries everything the model sees for one forecast
type Request struct {
	History    []domain.SalesRecord
	Items      []domain.ItemRecord
	Promotions []domain.PromotionRecord
	Drivers    []domain.DriverSetting
	Horizon    int
}

// NoopGenerator is used when no model is configured. It returns an empty
// forecast so the merged series holds history only.
type NoopGenerator struct{}

// Generate returns an empty series
func (NoopGenerator) Generate(ctx context.Context, req Request) (domain.Series, error) {
	return domain.Series{}, nil
}

// Analyze returns NoInsights
func (NoopGenerator) Analyze(ctx context.Context, forecast domain.Series) (string, error) {
	return NoInsights, nil
}
