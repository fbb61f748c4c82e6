package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "demandplanner/internal/errors"
	"demandplanner/internal/exporter"
	"demandplanner/internal/planner"
	"demandplanner/internal/validation"
	"demandplanner/internal/warehouse"
	api "demandplanner/pkg/contracts/api/v1"
	"demandplanner/pkg/contracts/domain"
)

// uploadFormField is the multipart field carrying an uploaded file
const uploadFormField = "file"

// PlanningHandler exposes the planning workflow under /api/planning
type PlanningHandler struct {
	service         PlanningServiceInterface
	validate        *validator.Validate
	maxUploadBytes  int64
	forecastTimeout time.Duration
	jsonBody        func(http.Handler) http.Handler
	logger          *slog.Logger
	errorHandler    *apierrors.ErrorHandler
}

// PlanningHandlerOptions bounds request sizes and run times
type PlanningHandlerOptions struct {
	MaxUploadBytes  int64
	ForecastTimeout time.Duration
	// JSONBody wraps the routes that take a JSON body, uploads excluded
	JSONBody func(http.Handler) http.Handler
}

// NewPlanningHandler creates a planning handler
func NewPlanningHandler(service PlanningServiceInterface, opts PlanningHandlerOptions, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PlanningHandler {
	return &PlanningHandler{
		service:         service,
		validate:        validation.New(),
		maxUploadBytes:  opts.MaxUploadBytes,
		forecastTimeout: opts.ForecastTimeout,
		jsonBody:        opts.JSONBody,
		logger:          logger.With(slog.String("component", "planning_handler")),
		errorHandler:    errorHandler,
	}
}

// Routes returns the planning routes
func (h *PlanningHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/uploads", h.ListUploads)
	r.Route("/uploads/{kind}", func(r chi.Router) {
		r.Use(h.KindCtx)
		r.Post("/", h.Upload)
		r.Delete("/", h.ClearUpload)
	})

	r.Group(func(r chi.Router) {
		if h.jsonBody != nil {
			r.Use(h.jsonBody)
		}
		r.Get("/segments", h.GetSegments)
		r.Put("/segments", h.SetSegments)

		r.Get("/drivers", h.GetDrivers)
		r.Post("/drivers/reset", h.ResetDrivers)
		r.Put("/drivers/{id}", h.SetDriver)

		r.Get("/warehouse", h.GetWarehouse)
		r.Put("/warehouse", h.SetWarehouse)
		r.Post("/warehouse/test", h.TestWarehouse)
	})

	r.Post("/forecast", h.RunForecast)
	r.Get("/forecast", h.GetForecast)

	r.Get("/export", h.Export)

	return r
}

// KindCtx rejects unknown record kinds before the body is read
func (h *PlanningHandler) KindCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := domain.RecordKind(chi.URLParam(r, "kind"))
		if !kind.Valid() {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind",
				fmt.Sprintf("Unknown record kind %q. Must be one of: sales, items, promotions", kind)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListUploads handles GET /api/planning/uploads
func (h *PlanningHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	uploads := h.service.Snapshot().Uploads()

	resp := api.UploadsResponse{Uploads: make([]api.UploadResponse, 0, len(uploads))}
	for _, kind := range []domain.RecordKind{domain.RecordKindSales, domain.RecordKindItems, domain.RecordKindPromotions} {
		if info, ok := uploads[kind]; ok {
			resp.Uploads = append(resp.Uploads, toUploadResponse(kind, info))
		}
	}
	render.JSON(w, r, resp)
}

// Upload handles POST /api/planning/uploads/{kind}. The file is taken from
// the multipart "file" field or, for any other content type, from the raw
// body with its name in the filename query parameter.
func (h *PlanningHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind := domain.RecordKind(chi.URLParam(r, "kind"))
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	body, fileName, closeBody, err := h.uploadBody(r, kind)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer closeBody()

	upload, err := h.service.LoadUpload(r.Context(), kind, fileName, body)
	if err != nil {
		if tooLarge(err) {
			err = apierrors.ErrPayloadTooLarge
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "file uploaded",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("kind", string(kind)),
		slog.String("file_name", fileName),
		slog.Int("records", upload.Len()))

	info := h.service.Snapshot().Uploads()[kind]
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUploadResponse(kind, info))
}

func (h *PlanningHandler) uploadBody(r *http.Request, kind domain.RecordKind) (io.Reader, string, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name := strings.TrimSpace(r.URL.Query().Get("filename"))
		if name == "" {
			name = string(kind) + ".csv"
		}
		return r.Body, name, func() {}, nil
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		if tooLarge(err) {
			return nil, "", nil, apierrors.ErrPayloadTooLarge
		}
		return nil, "", nil, apierrors.ErrValidation(uploadFormField, "A file is required in the multipart field \"file\"")
	}
	return file, header.Filename, func() { file.Close() }, nil
}

// ClearUpload handles DELETE /api/planning/uploads/{kind}
func (h *PlanningHandler) ClearUpload(w http.ResponseWriter, r *http.Request) {
	kind := domain.RecordKind(chi.URLParam(r, "kind"))
	if err := h.service.ClearUpload(r.Context(), kind); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSegments handles GET /api/planning/segments
func (h *PlanningHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.segmentOptions())
}

// SetSegments handles PUT /api/planning/segments
func (h *PlanningHandler) SetSegments(w http.ResponseWriter, r *http.Request) {
	var req api.SegmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.service.SetFilter(r.Context(), req.ToFilter())
	render.JSON(w, r, h.segmentOptions())
}

func (h *PlanningHandler) segmentOptions() api.SegmentOptionsResponse {
	selected, opts := h.service.FilterOptions()
	return api.SegmentOptionsResponse{
		Selected:   selected,
		Categories: opts.Categories,
		Brands:     opts.Brands,
		SKUs:       opts.SKUs,
	}
}

// GetDrivers handles GET /api/planning/drivers
func (h *PlanningHandler) GetDrivers(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Drivers())
}

// SetDriver handles PUT /api/planning/drivers/{id}
func (h *PlanningHandler) SetDriver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req api.UpdateDriverRequest
	if !h.decode(w, r, &req) {
		return
	}

	driver, err := h.service.SetDriver(r.Context(), id, *req.Value)
	if err != nil {
		if apierrors.IsType(err, apierrors.ErrTypeNotFound) {
			err = apierrors.DriverNotFound(id)
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, driver)
}

// ResetDrivers handles POST /api/planning/drivers/reset
func (h *PlanningHandler) ResetDrivers(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ResetDrivers(r.Context()))
}

// GetWarehouse handles GET /api/planning/warehouse
func (h *PlanningHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	st := h.service.Snapshot()
	render.JSON(w, r, toWarehouseResponse(st.Warehouse()))
}

// SetWarehouse handles PUT /api/planning/warehouse. An omitted access token
// keeps the stored one.
func (h *PlanningHandler) SetWarehouse(w http.ResponseWriter, r *http.Request) {
	var req api.WarehouseSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	saved, err := h.service.SetWarehouse(r.Context(), warehouse.Settings{
		Enabled:     req.Enabled,
		ProjectID:   strings.TrimSpace(req.ProjectID),
		DatasetID:   strings.TrimSpace(req.DatasetID),
		TableID:     strings.TrimSpace(req.TableID),
		AccessToken: strings.TrimSpace(req.AccessToken),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, toWarehouseResponse(saved))
}

// TestWarehouse handles POST /api/planning/warehouse/test
func (h *PlanningHandler) TestWarehouse(w http.ResponseWriter, r *http.Request) {
	columns, err := h.service.TestWarehouse(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.WarehouseTestResponse{Connected: true, Columns: columns})
}

// RunForecast handles POST /api/planning/forecast
func (h *PlanningHandler) RunForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forecastTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.forecastTimeout)
		defer cancel()
	}

	result, err := h.service.RunForecast(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, toForecastResponse(result))
}

// GetForecast handles GET /api/planning/forecast
func (h *PlanningHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	result, ok := h.service.Snapshot().Result()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoResult)
		return
	}
	render.JSON(w, r, toForecastResponse(result))
}

// Export handles GET /api/planning/export?format=csv|xlsx&coalesce=true
func (h *PlanningHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coalesce := false
	if raw := q.Get("coalesce"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("coalesce", "coalesce must be true or false"))
			return
		}
		coalesce = v
	}

	query := api.ExportQuery{Format: strings.ToLower(q.Get("format")), Coalesce: coalesce}
	if err := validation.Struct(h.validate, query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, _ := exporter.ParseFormat(query.Format)

	export, err := h.service.Export(r.Context(), format, query.Coalesce)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Body); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export", slog.String("error", err.Error()))
	}
}

// decode reads a JSON body into v and validates it, writing the error
// response itself when either step fails
func (h *PlanningHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := validation.Struct(h.validate, v); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func toUploadResponse(kind domain.RecordKind, info planner.UploadInfo) api.UploadResponse {
	return api.UploadResponse{
		Kind:     kind,
		FileName: info.FileName,
		Records:  info.Records,
		LoadedAt: info.LoadedAt,
	}
}

func toWarehouseResponse(ws warehouse.Settings) api.WarehouseSettingsResponse {
	return api.WarehouseSettingsResponse{
		Enabled:   ws.Enabled,
		ProjectID: ws.ProjectID,
		DatasetID: ws.DatasetID,
		TableID:   ws.TableID,
		HasToken:  ws.HasToken(),
		Active:    ws.Enabled && ws.HasToken(),
	}
}

func toForecastResponse(r planner.Result) api.ForecastResponse {
	return api.ForecastResponse{
		Source:      r.Source,
		Series:      r.Merged,
		Insights:    r.Insights,
		GeneratedAt: r.GeneratedAt,
	}
}
