// Package config loads and validates the demand planner configuration.
//
// # Configuration Sources
//
// Values are resolved in three layers, each overriding the previous one:
//
//	1. Default() values
//	2. A YAML file (DEMAND_CONFIG_FILE, ./config.yaml or ./configs/config.yaml)
//	3. Environment variables prefixed with DEMAND_
//
// # Environment Variables
//
// Nested sections map to underscored names:
//
//	DEMAND_SERVER_PORT=8080
//	DEMAND_LOGGING_LEVEL=debug
//	DEMAND_WAREHOUSE_ENABLED=true
//	DEMAND_WAREHOUSE_PROJECT_ID=acme-analytics
//	DEMAND_WAREHOUSE_ACCESS_TOKEN=ya29...
//	DEMAND_FORECAST_API_KEY=...
//
// # Paths
//
// ResolvePaths turns the relative data, reports and logs directories into
// absolute paths; the exporter writes generated files into ReportsDir.
package config
