// Package api contains API contract definitions for the demand planner.
// Version v1 represents the current stable API version.
package api

import (
	"demandplanner/pkg/contracts/domain"
)

// SegmentRequest selects the category, brand and sku slice to forecast.
// Empty levels and "all" select everything.
type SegmentRequest struct {
	Category string `json:"category" validate:"omitempty,max=128"`
	Brand    string `json:"brand" validate:"omitempty,max=128"`
	SKU      string `json:"sku" validate:"omitempty,max=128"`
}

// ToFilter converts the request into a domain filter
func (r SegmentRequest) ToFilter() domain.SegmentFilter {
	return domain.SegmentFilter{Category: r.Category, Brand: r.Brand, SKU: r.SKU}.Canonical()
}

// UpdateDriverRequest sets one scenario driver. Value must lie within the
// driver's range and is snapped to its step.
type UpdateDriverRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

// WarehouseSettingsRequest switches the data source and points it at a table
type WarehouseSettingsRequest struct {
	Enabled     bool   `json:"enabled"`
	ProjectID   string `json:"projectId" validate:"omitempty,bqproject,max=128"`
	DatasetID   string `json:"datasetId" validate:"omitempty,bqident,max=1024"`
	TableID     string `json:"tableId" validate:"omitempty,bqident,max=1024"`
	AccessToken string `json:"accessToken" validate:"omitempty,max=4096"`
}

// ExportQuery holds the export query parameters
type ExportQuery struct {
	Format   string `json:"format" validate:"omitempty,oneof=csv xlsx"`
	Coalesce bool   `json:"coalesce"`
}
