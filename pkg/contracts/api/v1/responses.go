package api

import (
	"time"

	"demandplanner/pkg/contracts/domain"
)

// UploadResponse reports the records parsed from one uploaded file
type UploadResponse struct {
	Kind     domain.RecordKind `json:"kind"`
	FileName string            `json:"fileName"`
	Records  int               `json:"records"`
	LoadedAt time.Time         `json:"loadedAt"`
}

// SegmentOptionsResponse lists the selectable values of each segment level
// given the current upper-level selections
type SegmentOptionsResponse struct {
	Selected   domain.SegmentFilter `json:"selected"`
	Categories []string             `json:"categories"`
	Brands     []string             `json:"brands"`
	SKUs       []string             `json:"skus"`
}

// ForecastResponse is the merged series of the latest run
type ForecastResponse struct {
	Source      domain.DataSource `json:"source"`
	Series      domain.Series     `json:"series"`
	Insights    string            `json:"insights,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// WarehouseTestResponse reports a successful connectivity check
type WarehouseTestResponse struct {
	Connected bool     `json:"connected"`
	Columns   []string `json:"columns"`
}

// WarehouseSettingsResponse echoes the stored warehouse settings. The access
// token itself is never returned.
type WarehouseSettingsResponse struct {
	Enabled   bool   `json:"enabled"`
	ProjectID string `json:"projectId"`
	DatasetID string `json:"datasetId"`
	TableID   string `json:"tableId"`
	HasToken  bool   `json:"hasToken"`
	// Active is true when forecast runs read from the warehouse
	Active bool `json:"active"`
}

// UploadsResponse lists the files currently loaded per record kind
type UploadsResponse struct {
	Uploads []UploadResponse `json:"uploads"`
}

// ReportResponse describes one archived forecast export
type ReportResponse struct {
	Name       string            `json:"name"`
	Source     domain.DataSource `json:"source"`
	Date       string            `json:"date"`
	Format     string            `json:"format"`
	Size       int64             `json:"size"`
	ModifiedAt time.Time         `json:"modifiedAt"`
}

// ReportsResponse lists the archive, newest first
type ReportsResponse struct {
	Reports []ReportResponse `json:"reports"`
}
