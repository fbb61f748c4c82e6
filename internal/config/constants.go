package config

import (
	"time"

	"demandplanner/pkg/contracts"
)

// Application constants
const (
	AppName    = "Demand Planner"
	AppVersion = contracts.Version

	// Forecast providers
	ProviderGemini = "gemini"
	ProviderNone   = "none"

	DefaultForecastModel = "gemini-2.5-pro"
	DefaultInsightModel  = "gemini-2.5-flash"
	DefaultHistoryWindow = 50
	DefaultHorizonMonths = 6

	DefaultWarehouseRowLimit = 1000
	DefaultWarehouseTimeout  = 30 * time.Second

	DefaultMaxUploadBytes = 20 << 20

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 100

	// File Paths (relative to working directory)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// Archived forecast exports kept in the reports directory
	DefaultReportRetention = 30
)
