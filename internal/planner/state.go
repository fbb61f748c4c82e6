package planner

import (
	"fmt"
	"time"

	"demandplanner/internal/dataprocessing"
	apierrors "demandplanner/internal/errors"
	"demandplanner/internal/warehouse"
	"demandplanner/pkg/contracts/domain"
)

// UploadInfo describes the file currently loaded for one record kind
type UploadInfo struct {
	FileName string    `json:"fileName"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Result is the output of one forecast run
type Result struct {
	Source      domain.DataSource
	History     domain.Series
	Forecast    domain.Series
	Merged      domain.Series
	Insights    string
	GeneratedAt time.Time
}

// State is an immutable snapshot of the planner. Every With method returns a
// new State and leaves the receiver untouched; accessors return copies.
type State struct {
	sales      []domain.SalesRecord
	items      []domain.ItemRecord
	promotions []domain.PromotionRecord
	uploads    map[domain.RecordKind]UploadInfo

	filter    domain.SegmentFilter
	drivers   []domain.DriverSetting
	warehouse warehouse.Settings

	result *Result

	version   uint64
	updatedAt time.Time
}

// New returns the initial state: no data, every segment selected and the
// default drivers
func New(ws warehouse.Settings, at time.Time) *State {
	return &State{
		uploads:   map[domain.RecordKind]UploadInfo{},
		filter:    domain.AllSegments(),
		drivers:   domain.DefaultDrivers(),
		warehouse: ws,
		updatedAt: at,
	}
}

func (s *State) next(at time.Time) *State {
	n := *s
	n.uploads = make(map[domain.RecordKind]UploadInfo, len(s.uploads))
	for k, v := range s.uploads {
		n.uploads[k] = v
	}
	n.version = s.version + 1
	n.updatedAt = at
	return &n
}

// WithUpload replaces the records of the upload's kind. Loading sales drops
// any previous forecast result since it no longer matches the history.
func (s *State) WithUpload(u *dataprocessing.Upload, fileName string, at time.Time) (*State, error) {
	if u == nil || !u.Kind.Valid() {
		return nil, apierrors.NewAppValidationError("unknown upload kind")
	}

	n := s.next(at)
	switch u.Kind {
	case domain.RecordKindSales:
		n.sales = append([]domain.SalesRecord(nil), u.Sales...)
		n.result = nil
	case domain.RecordKindItems:
		n.items = append([]domain.ItemRecord(nil), u.Items...)
		n.filter = dataprocessing.Reconcile(n.items, n.filter)
	case domain.RecordKindPromotions:
		n.promotions = append([]domain.PromotionRecord(nil), u.Promotions...)
	}
	n.uploads[u.Kind] = UploadInfo{FileName: fileName, Records: u.Len(), LoadedAt: at}
	return n, nil
}

// ClearUpload removes the records of one kind
func (s *State) ClearUpload(kind domain.RecordKind, at time.Time) (*State, error) {
	if !kind.Valid() {
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("unknown record kind %q", kind))
	}

	n := s.next(at)
	switch kind {
	case domain.RecordKindSales:
		n.sales = nil
		n.result = nil
	case domain.RecordKindItems:
		n.items = nil
		n.filter = domain.AllSegments()
	case domain.RecordKindPromotions:
		n.promotions = nil
	}
	delete(n.uploads, kind)
	return n, nil
}

// WithFilter selects a segment. Levels that are unreachable under the
// chosen parent fall back to the wildcard.
func (s *State) WithFilter(f domain.SegmentFilter, at time.Time) *State {
	n := s.next(at)
	n.filter = dataprocessing.Reconcile(s.items, f.Canonical())
	return n
}

// WithDriver sets one driver. The value must lie inside the driver's range
// and is snapped to the nearest step.
func (s *State) WithDriver(id string, value float64, at time.Time) (*State, error) {
	i := domain.FindDriver(s.drivers, id)
	if i < 0 {
		return nil, apierrors.NewNotFoundError(fmt.Sprintf("driver %q not found", id), nil)
	}
	d := s.drivers[i]
	if value < d.Min || value > d.Max {
		return nil, apierrors.NewAppValidationError(
			fmt.Sprintf("%s must be between %v and %v", d.Name, d.Min, d.Max)).
			WithContext("driver", id)
	}

	n := s.next(at)
	n.drivers = append([]domain.DriverSetting(nil), s.drivers...)
	n.drivers[i].Value = d.Clamp(value)
	return n, nil
}

// ResetDrivers restores the default drivers
func (s *State) ResetDrivers(at time.Time) *State {
	n := s.next(at)
	n.drivers = domain.DefaultDrivers()
	return n
}

// WithWarehouse replaces the warehouse settings
func (s *State) WithWarehouse(ws warehouse.Settings, at time.Time) *State {
	n := s.next(at)
	n.warehouse = ws
	return n
}

// WithResult stores a completed forecast run
func (s *State) WithResult(r Result, at time.Time) *State {
	n := s.next(at)
	n.result = &Result{
		Source:      r.Source,
		History:     r.History.Clone(),
		Forecast:    r.Forecast.Clone(),
		Merged:      r.Merged.Clone(),
		Insights:    r.Insights,
		GeneratedAt: r.GeneratedAt,
	}
	return n
}

// Sales returns a copy of the loaded sales records
func (s *State) Sales() []domain.SalesRecord {
	return append([]domain.SalesRecord(nil), s.sales...)
}

// Items returns a copy of the item master
func (s *State) Items() []domain.ItemRecord {
	return append([]domain.ItemRecord(nil), s.items...)
}

// Promotions returns a copy of the promotions
func (s *State) Promotions() []domain.PromotionRecord {
	return append([]domain.PromotionRecord(nil), s.promotions...)
}

// Uploads returns the loaded file per kind
func (s *State) Uploads() map[domain.RecordKind]UploadInfo {
	out := make(map[domain.RecordKind]UploadInfo, len(s.uploads))
	for k, v := range s.uploads {
		out[k] = v
	}
	return out
}

func (s *State) Filter() domain.SegmentFilter { return s.filter }

// Drivers returns a copy of the drivers
func (s *State) Drivers() []domain.DriverSetting {
	return append([]domain.DriverSetting(nil), s.drivers...)
}

func (s *State) Warehouse() warehouse.Settings { return s.warehouse }

// UsesWarehouse reports whether a run reads its forecast from the warehouse
func (s *State) UsesWarehouse() bool {
	return s.warehouse.Enabled && s.warehouse.HasToken()
}

// Result returns a copy of the last forecast run
func (s *State) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	r := *s.result
	r.History = r.History.Clone()
	r.Forecast = r.Forecast.Clone()
	r.Merged = r.Merged.Clone()
	return r, true
}

func (s *State) Version() uint64 { return s.version }

func (s *State) UpdatedAt() time.Time { return s.updatedAt }
