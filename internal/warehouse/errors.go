package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"

	apierrors "demandplanner/internal/errors"
)

var (
	ErrCredentialExpired = errors.New("warehouse credential expired")
	ErrTableNotFound     = errors.New("warehouse table not found")
	ErrPermissionDenied  = errors.New("warehouse permission denied")
	ErrQueryFailed       = errors.New("warehouse query failed")
	ErrUnreachable       = errors.New("warehouse unreachable")
)

// Messages shown to the user for each classified failure
const (
	MsgCredentialExpired = "Access token has expired. Generate a new token (gcloud auth print-access-token) and save the warehouse settings again."
	MsgTableNotFound     = "Table not found. Please check Project, Dataset, and Table IDs."
	MsgPermissionDenied  = "The access token does not have permission to query this table."
	MsgUnreachable       = "The warehouse could not be reached."
)

// ClassifyError turns a query failure into an AppError. An API status of
// 401, 404 or 403 decides directly; otherwise the message is searched for
// those markers in that order, whatever the status. Only then does a
// remaining API status become an upstream failure and anything else a
// network failure. Context cancellation passes through.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := apierrors.AsAppError(err); ok {
		return err
	}

	message := err.Error()
	code := 0
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code = gerr.Code
		if gerr.Message != "" {
			message = gerr.Message
		}
	}

	status := code
	switch code {
	case http.StatusUnauthorized, http.StatusNotFound, http.StatusForbidden:
	default:
		if marker := statusMarker(message); marker != 0 {
			status = marker
		}
	}

	var classified *apierrors.AppError
	switch {
	case status == http.StatusUnauthorized:
		classified = apierrors.NewAuthenticationError(MsgCredentialExpired, fmt.Errorf("%w: %v", ErrCredentialExpired, err))
	case status == http.StatusNotFound:
		classified = apierrors.NewNotFoundError(MsgTableNotFound, fmt.Errorf("%w: %v", ErrTableNotFound, err))
	case status == http.StatusForbidden:
		classified = apierrors.NewPermissionError(MsgPermissionDenied, fmt.Errorf("%w: %v", ErrPermissionDenied, err))
	case code != 0:
		classified = apierrors.NewUpstreamError(message, fmt.Errorf("%w: %v", ErrQueryFailed, err))
	default:
		classified = apierrors.NewNetworkError(MsgUnreachable, fmt.Errorf("%w: %v", ErrUnreachable, err))
	}
	if code != 0 {
		classified.WithContext("status", code)
	}
	return classified.WithContext("source", apierrors.SourceWarehouse)
}

// statusMarker finds 401, 404 or 403 in an error message, in that order
func statusMarker(message string) int {
	for _, code := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusForbidden} {
		if strings.Contains(message, strconv.Itoa(code)) {
			return code
		}
	}
	return 0
}

// ErrorKind returns a short label for a classified error, for metrics
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCredentialExpired):
		return "credential_expired"
	case errors.Is(err, ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrQueryFailed):
		return "query_failed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	}
	return "other"
}
