package forecast

import (
	"encoding/json"
	"fmt"
	"strings"

	"demandplanner/pkg/contracts/domain"
)

// ParseForecast decodes the model's JSON array of forecast points. Code
// fences are tolerated, month-only dates get a "-01" day, and any actual
// value is dropped since a forecast carries no observations.
func ParseForecast(text string) (domain.Series, error) {
	text = stripFence(text)
	if text == "" {
		return nil, fmt.Errorf("empty forecast response")
	}

	var points []domain.ForecastPoint
	if err := json.Unmarshal([]byte(text), &points); err != nil {
		return nil, fmt.Errorf("invalid forecast response: %w", err)
	}

	series := make(domain.Series, 0, len(points))
	for _, p := range points {
		p.Actual = nil
		p.Date = normalizeMonth(p.Date)
		series = append(series, p)
	}
	return series, nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func normalizeMonth(date string) string {
	date = strings.TrimSpace(date)
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}
	if len(date) == 7 && date[4] == '-' {
		return date + "-01"
	}
	return date
}
