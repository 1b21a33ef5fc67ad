package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ServiceName and Version are reported by the root endpoint.
const ServiceName = "agro-operations"

var Version = "dev"

// Root describes the running service.
func Root(c echo.Context) error {
	return respond(c, http.StatusOK, "farm operations API", map[string]string{
		"service": ServiceName,
		"version": Version,
	})
}

// Health is used by load balancers and monitoring to check liveness.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
