package handler // handler contains the HTTP handlers and the shared response envelope

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/agro-operations/internal/repository"
	"github.com/iliyamo/agro-operations/internal/service"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Token   string               `json:"token,omitempty"`
	Count   *int                 `json:"count,omitempty"`
	Data    any                  `json:"data,omitempty"`
	Errors  []service.FieldError `json:"errors,omitempty"`
}

func respond(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

func respondList(c echo.Context, data any, n int) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Count: &n, Data: data})
}

func fail(c echo.Context, status int, msg string, fields ...service.FieldError) error {
	return c.JSON(status, envelope{Success: false, Message: msg, Errors: fields})
}

// statusFor maps a service error kind to its HTTP status.  Conflicts are
// reported as 400 like any other business rule violation.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindConflict:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError renders classified errors.  Anything else is returned to
// Echo so the HTTP error handler logs it and answers 500.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		return fail(c, statusFor(se.Kind), se.Message, se.Fields...)
	}
	return err
}

// recordError maps repository sentinels of the record endpoints.
func recordError(c echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return fail(c, http.StatusBadRequest, "a record with the same unique value already exists")
	case errors.Is(err, repository.ErrForeignKey):
		return fail(c, http.StatusBadRequest, "referenced record does not exist")
	}
	return respondError(c, err)
}

// parseID reads the positive integer path parameter "id".
func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.Validation("invalid id",
			service.FieldError{Field: "id", Message: "must be a positive integer"})
	}
	return id, nil
}

// HTTPErrorHandler renders framework and unexpected errors in the response
// envelope.  Unexpected errors are logged with the request id and hidden
// from the client.
func HTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		default:
			if _, ok := service.KindOf(err); ok {
				_ = respondError(c, err)
				return
			}
			log.WithError(err).WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"uri":        c.Request().RequestURI,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Error("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = fail(c, status, msg)
	}
}
