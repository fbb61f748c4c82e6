package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

// reportName matches files written by exporter.ExportFilename
var reportName = regexp.MustCompile(`^demand_forecast_([A-Z]+)_(\d{4}-\d{2}-\d{2})\.(csv|xlsx)$`)

// Report describes one archived forecast export
type Report struct {
	Name    string
	Path    string
	Source  domain.DataSource
	Date    string
	Format  string
	Size    int64
	ModTime time.Time
}

// ParseReportName extracts source, date and format from an archive file
// name. Names that were not produced by the exporter are rejected.
func ParseReportName(name string) (Report, bool) {
	m := reportName.FindStringSubmatch(name)
	if m == nil {
		return Report{}, false
	}
	return Report{Name: name, Source: domain.DataSource(m[1]), Date: m[2], Format: m[3]}, true
}

// Archive lists and opens the forecast exports saved in one directory
type Archive struct {
	dir    string
	logger *slog.Logger
}

// NewArchive creates an archive over dir
func NewArchive(dir string, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{dir: dir, logger: logger.With(slog.String("component", "report_archive"))}
}

// List returns the archived reports, newest date first. Other files in the
// directory are skipped. A missing directory is an empty archive.
func (a *Archive) List() ([]Report, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return []Report{}, nil
	}
	if err != nil {
		return nil, apierrors.NewStorageError(fmt.Sprintf("failed to read directory %s", a.dir), err)
	}

	reports := make([]Report, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		report, ok := ParseReportName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		report.Path = filepath.Join(a.dir, entry.Name())
		report.Size = info.Size()
		report.ModTime = info.ModTime()
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Date != reports[j].Date {
			return reports[i].Date > reports[j].Date
		}
		return reports[i].Name < reports[j].Name
	})
	return reports, nil
}

// Latest returns the newest report, if any
func (a *Archive) Latest() (Report, bool, error) {
	reports, err := a.List()
	if err != nil || len(reports) == 0 {
		return Report{}, false, err
	}
	return reports[0], true, nil
}

// Open opens the named report for reading. The caller closes the file.
func (a *Archive) Open(name string) (*os.File, Report, error) {
	report, ok := ParseReportName(name)
	if !ok || filepath.Base(name) != name {
		return nil, Report{}, apierrors.NewNotFoundError(fmt.Sprintf("report %q not found", name), nil)
	}

	path := filepath.Join(a.dir, name)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, Report{}, apierrors.NewNotFoundError(fmt.Sprintf("report %q not found", name), err)
	}
	if err != nil {
		return nil, Report{}, apierrors.NewStorageError("failed to open report", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Report{}, apierrors.NewStorageError("failed to stat report", err)
	}
	report.Path = path
	report.Size = info.Size()
	report.ModTime = info.ModTime()
	return f, report, nil
}

// Prune deletes all but the newest keep reports and returns how many were
// removed. keep <= 0 disables pruning.
func (a *Archive) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	reports, err := a.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, r := range reports[min(keep, len(reports)):] {
		if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
			return removed, apierrors.NewStorageError("failed to remove report "+r.Name, err)
		}
		removed++
	}
	if removed > 0 {
		a.logger.Info("archive pruned", slog.Int("removed", removed), slog.Int("kept", keep))
	}
	return removed, nil
}
