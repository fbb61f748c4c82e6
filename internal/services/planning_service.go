package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"demandplanner/internal/dataprocessing"
	apierrors "demandplanner/internal/errors"
	"demandplanner/internal/exporter"
	"demandplanner/internal/forecast"
	"demandplanner/internal/infrastructure"
	"demandplanner/internal/planner"
	"demandplanner/internal/warehouse"
	"demandplanner/pkg/contracts/domain"
)

// WarehouseClient reads forecast series from the warehouse
type WarehouseClient interface {
	FetchSeries(ctx context.Context, s warehouse.Settings) (domain.Series, error)
	TestConnection(ctx context.Context, s warehouse.Settings) ([]string, error)
}

// StateListener is told about every committed state change. change names
// the operation that produced st.
type StateListener interface {
	StateChanged(ctx context.Context, change string, st *planner.State)
}

// ReportPruner trims the archive of saved exports
type ReportPruner interface {
	Prune(keep int) (int, error)
}

// Export is a rendered download
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// PlanningService owns the current planner state and runs the
// reconciliation pipeline against it
type PlanningService struct {
	mu    sync.RWMutex
	state *planner.State

	generator forecast.Generator
	warehouse WarehouseClient
	archive   *exporter.CSVWriter
	pruner    ReportPruner
	keep      int
	horizon   int
	listener  StateListener

	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
	now     func() time.Time
	logger  *slog.Logger
}

// NewPlanningService creates the service with an empty state
func NewPlanningService(generator forecast.Generator, wh WarehouseClient, settings warehouse.Settings, logger *slog.Logger) *PlanningService {
	if logger == nil {
		logger = slog.Default()
	}
	if generator == nil {
		generator = forecast.NoopGenerator{}
	}
	now := time.Now
	return &PlanningService{
		state:     planner.New(settings, now()),
		generator: generator,
		warehouse: wh,
		tracer:    otel.Tracer(infrastructure.MeterName),
		now:       now,
		logger:    logger.With(slog.String("component", "planning_service")),
	}
}

// SetTelemetry attaches business metrics and a tracer
func (s *PlanningService) SetTelemetry(metrics *infrastructure.BusinessMetrics, tracer trace.Tracer) {
	s.metrics = metrics
	if tracer != nil {
		s.tracer = tracer
	}
}

// SetArchive makes every forecast run also save its merged series as CSV
func (s *PlanningService) SetArchive(w *exporter.CSVWriter) {
	s.archive = w
}

// SetListener registers l to receive state changes
func (s *PlanningService) SetListener(l StateListener) {
	s.listener = l
}

// SetRetention prunes the archive to the newest keep reports after each save
func (s *PlanningService) SetRetention(p ReportPruner, keep int) {
	s.pruner = p
	s.keep = keep
}

// SetHorizon sets the number of monthly points requested from the generator
func (s *PlanningService) SetHorizon(months int) {
	s.horizon = months
}

// Snapshot returns the current state
func (s *PlanningService) Snapshot() *planner.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// update commits fn's state and notifies the listener outside the lock
func (s *PlanningService) update(ctx context.Context, change string, fn func(*planner.State) (*planner.State, error)) (*planner.State, error) {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = next
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.StateChanged(ctx, change, next)
	}
	return next, nil
}

// LoadUpload parses r as the given kind and replaces that kind's records.
// Files ending in .xlsx are read as workbooks.
func (s *PlanningService) LoadUpload(ctx context.Context, kind domain.RecordKind, fileName string, r io.Reader) (*dataprocessing.Upload, error) {
	ctx, span := s.tracer.Start(ctx, "planning.load_upload", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("file_name", fileName),
	))
	defer span.End()

	var (
		upload *dataprocessing.Upload
		err    error
	)
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		upload, err = dataprocessing.ParseWorkbook(r, kind)
	} else {
		upload, err = dataprocessing.ParseReader(r, kind)
	}
	if err == nil {
		_, err = s.update(ctx, "upload", func(st *planner.State) (*planner.State, error) {
			return st.WithUpload(upload, fileName, s.now())
		})
	}
	infrastructure.RecordUpload(ctx, s.metrics, string(kind), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("kind", string(kind)),
			slog.String("file_name", fileName),
			slog.String("error", err.Error()))
		return nil, err
	}

	infrastructure.RecordStage(ctx, s.metrics, "parse", upload.Len())
	s.logger.InfoContext(ctx, "upload loaded",
		slog.String("kind", string(kind)),
		slog.String("file_name", fileName),
		slog.Int("records", upload.Len()),
		slog.Any("ignored_columns", upload.IgnoredColumns))
	return upload, nil
}

// ClearUpload drops the records of one kind
func (s *PlanningService) ClearUpload(ctx context.Context, kind domain.RecordKind) error {
	_, err := s.update(ctx, "clear_upload", func(st *planner.State) (*planner.State, error) {
		return st.ClearUpload(kind, s.now())
	})
	if err == nil {
		s.logger.InfoContext(ctx, "upload cleared", slog.String("kind", string(kind)))
	}
	return err
}

// SetFilter selects a segment and returns the reconciled filter
func (s *PlanningService) SetFilter(ctx context.Context, f domain.SegmentFilter) domain.SegmentFilter {
	st, _ := s.update(ctx, "filter", func(st *planner.State) (*planner.State, error) {
		return st.WithFilter(f, s.now()), nil
	})
	s.logger.DebugContext(ctx, "segment selected",
		slog.String("category", st.Filter().Category),
		slog.String("brand", st.Filter().Brand),
		slog.String("sku", st.Filter().SKU))
	return st.Filter()
}

// FilterOptions returns the current filter with the choices at each level
func (s *PlanningService) FilterOptions() (domain.SegmentFilter, dataprocessing.SegmentOptions) {
	st := s.Snapshot()
	return st.Filter(), dataprocessing.Options(st.Items(), st.Filter())
}

// Drivers returns the current scenario drivers
func (s *PlanningService) Drivers() []domain.DriverSetting {
	return s.Snapshot().Drivers()
}

// SetDriver updates one driver and returns it with the stored value
func (s *PlanningService) SetDriver(ctx context.Context, id string, value float64) (domain.DriverSetting, error) {
	st, err := s.update(ctx, "driver", func(st *planner.State) (*planner.State, error) {
		return st.WithDriver(id, value, s.now())
	})
	if err != nil {
		return domain.DriverSetting{}, err
	}
	drivers := st.Drivers()
	d := drivers[domain.FindDriver(drivers, id)]
	s.logger.InfoContext(ctx, "driver updated", slog.String("driver", id), slog.Float64("value", d.Value))
	return d, nil
}

// ResetDrivers restores the default drivers
func (s *PlanningService) ResetDrivers(ctx context.Context) []domain.DriverSetting {
	st, _ := s.update(ctx, "drivers_reset", func(st *planner.State) (*planner.State, error) {
		return st.ResetDrivers(s.now()), nil
	})
	return st.Drivers()
}

// SetWarehouse stores new warehouse settings. An empty token keeps the
// current one. Enabled settings must be complete and valid.
func (s *PlanningService) SetWarehouse(ctx context.Context, ws warehouse.Settings) (warehouse.Settings, error) {
	st, err := s.update(ctx, "warehouse", func(st *planner.State) (*planner.State, error) {
		if ws.AccessToken == "" {
			ws.AccessToken = st.Warehouse().AccessToken
		}
		if ws.Enabled {
			if err := ws.Validate(); err != nil {
				return nil, err
			}
		}
		return st.WithWarehouse(ws, s.now()), nil
	})
	if err != nil {
		return warehouse.Settings{}, err
	}

	s.logger.InfoContext(ctx, "warehouse settings updated",
		slog.Bool("enabled", ws.Enabled),
		slog.String("project_id", ws.ProjectID),
		slog.String("dataset_id", ws.DatasetID),
		slog.String("table_id", ws.TableID),
		slog.Bool("has_token", ws.HasToken()))
	return st.Warehouse(), nil
}

// TestWarehouse runs a one-row query with the stored settings and returns
// the table's columns
func (s *PlanningService) TestWarehouse(ctx context.Context) ([]string, error) {
	if s.warehouse == nil {
		return nil, apierrors.NewConfigError("no warehouse client is configured", nil)
	}

	ctx, span := s.tracer.Start(ctx, "planning.test_warehouse")
	defer span.End()

	columns, err := s.warehouse.TestConnection(ctx, s.Snapshot().Warehouse())
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordWarehouseError(ctx, s.metrics, warehouse.ErrorKind(err))
		return nil, err
	}
	return columns, nil
}

// RunForecast filters and aggregates the sales history, obtains a forecast
// from the warehouse when it is enabled or from the generator otherwise,
// merges both and stores the result. External calls run outside the state
// lock; a run that finishes after a newer one overwrites its result.
func (s *PlanningService) RunForecast(ctx context.Context) (planner.Result, error) {
	start := s.now()
	snap := s.Snapshot()

	source := domain.DataSourceSimulation
	if snap.UsesWarehouse() {
		source = domain.DataSourceBigQuery
	}

	ctx, span := s.tracer.Start(ctx, "planning.run_forecast", trace.WithAttributes(
		attribute.String("source", string(source)),
		attribute.Int64("state_version", int64(snap.Version())),
	))
	defer span.End()

	result, err := s.runPipeline(ctx, snap, source)
	infrastructure.RecordPipelineRun(ctx, s.metrics, string(source), s.now().Sub(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "forecast run failed",
			slog.String("source", string(source)),
			slog.String("error", err.Error()))
		return planner.Result{}, err
	}

	if _, err := s.update(ctx, "forecast", func(st *planner.State) (*planner.State, error) {
		return st.WithResult(result, s.now()), nil
	}); err != nil {
		return planner.Result{}, err
	}

	s.saveArchive(ctx, result)

	s.logger.InfoContext(ctx, "forecast run completed",
		slog.String("source", string(source)),
		slog.Int("history_points", len(result.History)),
		slog.Int("forecast_points", len(result.Forecast)),
		slog.Int("merged_points", len(result.Merged)),
		slog.Duration("duration", s.now().Sub(start)))
	return result, nil
}

func (s *PlanningService) runPipeline(ctx context.Context, snap *planner.State, source domain.DataSource) (planner.Result, error) {
	sales := snap.Sales()
	if len(sales) == 0 && source != domain.DataSourceBigQuery {
		return planner.Result{}, apierrors.ErrNoHistory
	}

	filtered := dataprocessing.FilterSales(sales, snap.Items(), snap.Filter())
	infrastructure.RecordStage(ctx, s.metrics, "filter", len(filtered))

	history := dataprocessing.AggregateByDate(filtered)
	infrastructure.RecordStage(ctx, s.metrics, "aggregate", len(history))

	var (
		forecastSeries domain.Series
		err            error
	)
	if source == domain.DataSourceBigQuery {
		if s.warehouse == nil {
			return planner.Result{}, apierrors.NewConfigError("no warehouse client is configured", nil)
		}
		forecastSeries, err = s.warehouse.FetchSeries(ctx, snap.Warehouse())
		if err != nil {
			infrastructure.RecordWarehouseError(ctx, s.metrics, warehouse.ErrorKind(err))
			return planner.Result{}, err
		}
	} else {
		forecastSeries, err = s.generator.Generate(ctx, forecast.Request{
			History:    filtered,
			Items:      snap.Items(),
			Promotions: snap.Promotions(),
			Drivers:    snap.Drivers(),
			Horizon:    s.horizon,
		})
		if err != nil {
			return planner.Result{}, err
		}
	}
	infrastructure.RecordStage(ctx, s.metrics, "forecast", len(forecastSeries))

	merged := dataprocessing.Merge(history, forecastSeries)
	infrastructure.RecordStage(ctx, s.metrics, "merge", len(merged))

	insights, err := s.generator.Analyze(ctx, forecastSeries)
	if err != nil {
		s.logger.WarnContext(ctx, "insight generation failed", slog.String("error", err.Error()))
		insights = forecast.NoInsights
	}

	return planner.Result{
		Source:      source,
		History:     history,
		Forecast:    forecastSeries,
		Merged:      merged,
		Insights:    insights,
		GeneratedAt: s.now(),
	}, nil
}

func (s *PlanningService) saveArchive(ctx context.Context, r planner.Result) {
	if s.archive == nil {
		return
	}
	path, err := s.archive.WriteSeriesFile(exporter.ExportFilename(r.Source, "csv", r.GeneratedAt), r.Merged)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive forecast", slog.String("error", err.Error()))
		return
	}
	s.logger.DebugContext(ctx, "forecast archived", slog.String("path", path))

	if s.pruner == nil {
		return
	}
	if _, err := s.pruner.Prune(s.keep); err != nil {
		s.logger.WarnContext(ctx, "failed to prune archive", slog.String("error", err.Error()))
	}
}

// Export renders the merged series of the last run. With coalesce, points
// sharing a date are folded into one row.
func (s *PlanningService) Export(ctx context.Context, format exporter.Format, coalesce bool) (*Export, error) {
	result, ok := s.Snapshot().Result()
	if !ok {
		return nil, apierrors.ErrNoResult
	}

	series := result.Merged
	if coalesce {
		series = dataprocessing.Coalesce(series)
	}

	var buf bytes.Buffer
	switch format {
	case exporter.FormatCSV:
		if err := exporter.WriteSeries(&buf, series); err != nil {
			return nil, err
		}
	case exporter.FormatXLSX:
		if err := exporter.WriteWorkbook(&buf, series); err != nil {
			return nil, err
		}
	default:
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("unsupported export format %q", format))
	}

	infrastructure.RecordExport(ctx, s.metrics, string(format))
	return &Export{
		FileName:    exporter.ExportFilename(result.Source, string(format), s.now()),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}
