package http

import (
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "demandplanner/internal/errors"
	"demandplanner/internal/exporter"
	"demandplanner/internal/files"
	api "demandplanner/pkg/contracts/api/v1"
)

// ReportArchive is the read side of the export archive
type ReportArchive interface {
	List() ([]files.Report, error)
	Open(name string) (*os.File, files.Report, error)
}

// ReportsHandler serves the archived forecast exports
type ReportsHandler struct {
	archive      ReportArchive
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportsHandler creates a reports handler
func NewReportsHandler(archive ReportArchive, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportsHandler {
	return &ReportsHandler{
		archive:      archive,
		logger:       logger.With(slog.String("handler", "reports")),
		errorHandler: errorHandler,
	}
}

// Routes returns the routes mounted under /api/reports
func (h *ReportsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{name}", h.Download)
	return r
}

// List handles GET /api/reports
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.archive.List()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.ReportsResponse{Reports: make([]api.ReportResponse, 0, len(reports))}
	for _, rep := range reports {
		resp.Reports = append(resp.Reports, api.ReportResponse{
			Name:       rep.Name,
			Source:     rep.Source,
			Date:       rep.Date,
			Format:     rep.Format,
			Size:       rep.Size,
			ModifiedAt: rep.ModTime,
		})
	}
	render.JSON(w, r, resp)
}

// Download handles GET /api/reports/{name}. Range and conditional requests
// are answered by http.ServeContent.
func (h *ReportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	f, report, err := h.archive.Open(chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", exporter.Format(report.Format).ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.Name}))
	http.ServeContent(w, r, report.Name, report.ModTime, f)
}
