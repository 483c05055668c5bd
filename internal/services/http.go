package services

import "net/http"

// MarkerForHTTPStatus maps an HTTP response status to a classification marker
// for Wrap. Auth failures are configuration problems, malformed requests are
// validation problems, and throttling or server errors are transient.
func MarkerForHTTPStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusPaymentRequired,
		status == http.StatusForbidden,
		status == http.StatusNotFound:
		return ErrConfiguration
	case status == http.StatusBadRequest,
		status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusRequestTimeout:
		return ErrTimeout
	case status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return ErrTransient
	default:
		return ErrExternalTool
	}
}
