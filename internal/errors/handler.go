package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeUnauthorized    = "/errors/unauthorized"
	TypeForbidden       = "/errors/forbidden"
	TypeInternal        = "/errors/internal"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeBadGateway      = "/errors/bad-gateway"
)

// Domain-specific error types
const (
	TypeUploadUnreadable    = "/errors/upload/unreadable"
	TypeWarehouseAuth       = "/errors/warehouse/credential-expired"
	TypeWarehouseNotFound   = "/errors/warehouse/table-not-found"
	TypeWarehouseForbidden  = "/errors/warehouse/permission-denied"
	TypeWarehouseNetwork    = "/errors/warehouse/unreachable"
	TypeWarehouseUpstream   = "/errors/warehouse/query-failed"
	TypeForecastUnavailable = "/errors/forecast/unavailable"
	TypeConfiguration       = "/errors/configuration"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details. Unclassified
// errors become a generic 500 so internal messages never reach the client.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	if appErr, ok := AsAppError(err); ok {
		return h.appErrorToProblem(appErr, r)
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return h.apiErrorToProblem(ErrPayloadTooLarge, r).
			WithExtension("limit_bytes", maxErr.Limit)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// SourceWarehouse marks AppErrors raised by the warehouse boundary; they get
// the warehouse problem types so clients can tell a bad table from a bad
// report name.
const SourceWarehouse = "warehouse"

var appErrorTypes = map[ErrorType]string{
	ErrTypeValidation:     TypeValidation,
	ErrTypeParsing:        TypeUploadUnreadable,
	ErrTypeAuthentication: TypeUnauthorized,
	ErrTypePermission:     TypeForbidden,
	ErrTypeNotFound:       TypeNotFound,
	ErrTypeNetwork:        TypeBadGateway,
	ErrTypeUpstream:       TypeForecastUnavailable,
	ErrTypeConfig:         TypeConfiguration,
}

var warehouseErrorTypes = map[ErrorType]string{
	ErrTypeAuthentication: TypeWarehouseAuth,
	ErrTypePermission:     TypeWarehouseForbidden,
	ErrTypeNotFound:       TypeWarehouseNotFound,
	ErrTypeNetwork:        TypeWarehouseNetwork,
	ErrTypeUpstream:       TypeWarehouseUpstream,
}

func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	status := appErr.StatusCode()
	problemType, ok := appErrorTypes[appErr.Type]
	if appErr.Context["source"] == SourceWarehouse {
		if t, found := warehouseErrorTypes[appErr.Type]; found {
			problemType, ok = t, true
		}
	}
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(
		status,
		problemType,
		http.StatusText(status),
		appErr.Message,
		r.URL.Path,
	).WithExtension("error_type", string(appErr.Type))

	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// apiErrorTypes maps APIError codes onto problem types
var apiErrorTypes = map[string]string{
	ErrInvalidRequest.ErrorCode:   TypeValidation,
	ErrValidationFailed.ErrorCode: TypeValidation,
	"INVALID_JSON":                TypeValidation,
	ErrUnsupportedMedia.ErrorCode: TypeValidation,
	ErrDriverNotFound.ErrorCode:   TypeNotFound,
	ErrNoHistory.ErrorCode:        TypeConflict,
	ErrNoResult.ErrorCode:         TypeConflict,
	ErrPayloadTooLarge.ErrorCode:  TypePayloadTooLarge,
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType, ok := apiErrorTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", getStackTrace()),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
