package warehouse

import (
	"fmt"
	"regexp"
	"strings"

	"demandplanner/internal/config"
	apierrors "demandplanner/internal/errors"
)

var (
	projectIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Settings addresses one forecast table. AccessToken is an opaque bearer
// token and is never logged.
type Settings struct {
	Enabled     bool   `json:"enabled"`
	ProjectID   string `json:"projectId"`
	DatasetID   string `json:"datasetId"`
	TableID     string `json:"tableId"`
	AccessToken string `json:"-"`
}

// SettingsFromConfig copies the configured table into Settings
func SettingsFromConfig(cfg config.WarehouseConfig) Settings {
	return Settings{
		Enabled:     cfg.Enabled,
		ProjectID:   strings.TrimSpace(cfg.ProjectID),
		DatasetID:   strings.TrimSpace(cfg.DatasetID),
		TableID:     strings.TrimSpace(cfg.TableID),
		AccessToken: strings.TrimSpace(cfg.AccessToken),
	}
}

// HasToken reports whether a bearer token is set
func (s Settings) HasToken() bool {
	return s.AccessToken != ""
}

// Table returns the fully qualified `project.dataset.table` reference
func (s Settings) Table() string {
	return fmt.Sprintf("`%s.%s.%s`", s.ProjectID, s.DatasetID, s.TableID)
}

// Validate rejects identifiers that could not be interpolated into a query
// safely and a missing token
func (s Settings) Validate() error {
	switch {
	case !ValidProjectID(s.ProjectID):
		return apierrors.NewAppValidationError(fmt.Sprintf("invalid project id %q", s.ProjectID)).
			WithContext("field", "projectId")
	case !ValidIdentifier(s.DatasetID):
		return apierrors.NewAppValidationError(fmt.Sprintf("invalid dataset id %q", s.DatasetID)).
			WithContext("field", "datasetId")
	case !ValidIdentifier(s.TableID):
		return apierrors.NewAppValidationError(fmt.Sprintf("invalid table id %q", s.TableID)).
			WithContext("field", "tableId")
	case !s.HasToken():
		return apierrors.NewAppValidationError("an access token is required").
			WithContext("field", "accessToken")
	}
	return nil
}

// ValidProjectID reports whether id is a usable project identifier
func ValidProjectID(id string) bool {
	return projectIDPattern.MatchString(id)
}

// ValidIdentifier reports whether id is a usable dataset or table name
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}
