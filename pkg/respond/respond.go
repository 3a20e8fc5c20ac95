// Package respond renders the JSON envelope used by every endpoint:
// {"success": true, "data": ...} on the happy path and
// {"success": false, "error": {"code": ..., "message": ...}} otherwise.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/apperr"
)

type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func OK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// Error maps an error to its HTTP status via the apperr taxonomy. Unclassified
// errors are reported as a generic internal failure so storage details never
// reach the client.
func Error(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	msg := err.Error()

	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict, apperr.KindNoCapacity:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindPersistence:
		msg = "internal error"
	default:
		kind = apperr.KindPersistence
		msg = "internal error"
	}

	return c.JSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: kind.String(), Message: msg},
	})
}
