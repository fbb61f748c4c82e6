package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is a request-level failure with a fixed status and code. Handlers
// return the predefined values below; ErrorHandler turns them into problem
// details.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// WithDetails returns a copy of e carrying details, leaving the shared
// value untouched
func (e *APIError) WithDetails(details interface{}) *APIError {
	c := *e
	c.Details = details
	return &c
}

// Is matches APIErrors by code so copies made by WithDetails still satisfy
// errors.Is against the predefined value
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.ErrorCode == e.ErrorCode
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the Details payload of a multi-field rejection
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrUnsupportedMedia = New(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
	ErrPayloadTooLarge  = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds maximum allowed size")
	ErrDriverNotFound   = New(http.StatusNotFound, "DRIVER_NOT_FOUND", "Driver not found")

	// pipeline preconditions
	ErrNoHistory = New(http.StatusConflict, "NO_HISTORY", "Upload sales history before generating a forecast")
	ErrNoResult  = New(http.StatusConflict, "NO_RESULT", "No forecast has been generated yet")
)

// InvalidRequestWithError wraps a decode failure
func InvalidRequestWithError(err error) *APIError {
	return ErrInvalidRequest.WithDetails(err.Error())
}

// ErrValidation rejects a single field
func ErrValidation(field, message string) *APIError {
	return ErrValidationFailed.WithDetails(ValidationError{Field: field, Message: message})
}

// NewValidationErrors rejects several fields at once
func NewValidationErrors(errs []ValidationError) *APIError {
	return ErrValidationFailed.WithDetails(ValidationErrors{Errors: errs})
}

// DriverNotFound names the unknown driver id
func DriverNotFound(id string) *APIError {
	return ErrDriverNotFound.WithDetails(map[string]string{"id": id})
}

// UnsupportedMediaType reports the content type that was sent
func UnsupportedMediaType(contentType string) *APIError {
	return ErrUnsupportedMedia.WithDetails(map[string]interface{}{"content_type": contentType})
}
