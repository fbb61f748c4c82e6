package http

import (
	"context"
	"io"

	"demandplanner/internal/dataprocessing"
	"demandplanner/internal/exporter"
	"demandplanner/internal/planner"
	"demandplanner/internal/services"
	"demandplanner/internal/warehouse"
	"demandplanner/pkg/contracts/domain"
)

// PlanningServiceInterface defines the planner operations exposed over HTTP
type PlanningServiceInterface interface {
	Snapshot() *planner.State

	LoadUpload(ctx context.Context, kind domain.RecordKind, fileName string, r io.Reader) (*dataprocessing.Upload, error)
	ClearUpload(ctx context.Context, kind domain.RecordKind) error

	SetFilter(ctx context.Context, f domain.SegmentFilter) domain.SegmentFilter
	FilterOptions() (domain.SegmentFilter, dataprocessing.SegmentOptions)

	Drivers() []domain.DriverSetting
	SetDriver(ctx context.Context, id string, value float64) (domain.DriverSetting, error)
	ResetDrivers(ctx context.Context) []domain.DriverSetting

	SetWarehouse(ctx context.Context, ws warehouse.Settings) (warehouse.Settings, error)
	TestWarehouse(ctx context.Context) ([]string, error)

	RunForecast(ctx context.Context) (planner.Result, error)
	Export(ctx context.Context, format exporter.Format, coalesce bool) (*services.Export, error)
}
