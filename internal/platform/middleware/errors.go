package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/pkg/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler renders *apperr.Error with its code and mapped status, and
// echo.HTTPError with its own status. Anything else is a 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorBody{Error: "INTERNAL", Message: "internal server error"}

		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = apperr.HTTPStatus(ae)
			body = ErrorBody{Error: ae.Code, Message: ae.Message}
			if ae.Kind == apperr.KindInternal {
				body.Message = "internal server error"
			}
		case errors.As(err, &he):
			status = he.Code
			body = ErrorBody{Error: http.StatusText(he.Code), Message: http.StatusText(he.Code)}
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			}
		default:
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
