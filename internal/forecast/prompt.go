package forecast

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"demandplanner/internal/config"
	"demandplanner/pkg/contracts/domain"
)

// RecentHistory returns the last n records, or all of them when n <= 0
func RecentHistory(history []domain.SalesRecord, n int) []domain.SalesRecord {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// StartMonth returns the first day of the month after the latest sales date
// as YYYY-MM-DD. It reports false when no date parses.
func StartMonth(history []domain.SalesRecord) (string, bool) {
	var latest time.Time
	for _, s := range history {
		d, ok := parseDate(s.Date)
		if ok && d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return "", false
	}
	first := time.Date(latest.Year(), latest.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, 0).Format("2006-01-02"), true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ForecastPrompt renders the instruction sent to the forecast model
func ForecastPrompt(req Request, historyWindow int) (string, error) {
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = config.DefaultHorizonMonths
	}

	history, err := json.Marshal(RecentHistory(req.History, historyWindow))
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	items, err := json.Marshal(req.Items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	promos, err := json.Marshal(req.Promotions)
	if err != nil {
		return "", fmt.Errorf("failed to encode promotions: %w", err)
	}
	drivers, err := json.Marshal(req.Drivers)
	if err != nil {
		return "", fmt.Errorf("failed to encode drivers: %w", err)
	}

	start := "the month after the last sales date"
	if s, ok := StartMonth(req.History); ok {
		start = s
	}

	var b strings.Builder
	b.WriteString("Act as a Senior Data Scientist. I am providing you with historical sales data, item metadata, promotions, and external planning drivers.\n")
	fmt.Fprintf(&b, "Your task is to simulate the output of four specific machine learning models (XGBoost, Random Forest, LightGBM, and Deep Neural Network) for the next %d months.\n\n", horizon)
	fmt.Fprintf(&b, "Sales History Summary: %s\n", history)
	fmt.Fprintf(&b, "Item Master: %s\n", items)
	fmt.Fprintf(&b, "Promotions: %s\n", promos)
	fmt.Fprintf(&b, "Driver Constraints: %s\n\n", drivers)
	b.WriteString("Please generate a forecasting dataset.\nRules:\n")
	fmt.Fprintf(&b, "1. Provide %d monthly data points starting from %s, dated YYYY-MM-DD on the first of each month.\n", horizon, start)
	b.WriteString("2. Each point should contain simulated values for 'xgboost', 'randomForest', 'lightGbm', and 'dnn'.\n")
	b.WriteString("3. Ensure 'xgboost' is slightly more sensitive to promotions.\n")
	b.WriteString("4. Ensure 'dnn' is smoother.\n")
	b.WriteString("5. Ensure the values are realistic based on the historical quantity average.\n")
	b.WriteString("6. Include a 'consensus' value which is the weighted average.\n")
	if adj := driverSummary(req.Drivers); adj != "" {
		fmt.Fprintf(&b, "7. Apply these scenario adjustments: %s.\n", adj)
	}
	return b.String(), nil
}

// driverSummary lists non-zero drivers as "Name +10", sorted by id
func driverSummary(drivers []domain.DriverSetting) string {
	active := make([]domain.DriverSetting, 0, len(drivers))
	for _, d := range drivers {
		if d.Value != 0 {
			active = append(active, d)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	parts := make([]string, len(active))
	for i, d := range active {
		parts[i] = fmt.Sprintf("%s %+g", d.Name, d.Value)
	}
	return strings.Join(parts, ", ")
}

// InsightPrompt renders the instruction for the insight model
func InsightPrompt(forecast domain.Series) (string, error) {
	data, err := json.Marshal(forecast)
	if err != nil {
		return "", fmt.Errorf("failed to encode forecast: %w", err)
	}
	return "Analyze this demand forecast data and provide 3 key business insights and a risk assessment. " +
		"Keep it professional and concise. Data: " + string(data), nil
}
